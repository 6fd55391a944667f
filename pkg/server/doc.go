// Package server dispatches Model Context Protocol requests to the
// capabilities held in a registry.
//
// Every inbound frame moves through the same stages: received, validated,
// invoked and responded. Decoding failures, unknown methods and unknown
// capabilities stop at the first stage; argument checks against the
// capability's declared shape happen before any handler runs. Each request
// gets exactly one response carrying its id, and every failure carries an
// error category: tools report it in the result's _meta, other methods in
// the JSON-RPC error data.
//
// # Creating a Server
//
//	reg := registry.New()
//	reg.MustRegister(registry.Tool{
//	    Name:     "echo",
//	    Metadata: registry.Metadata{Description: "Echoes its input"},
//	    Input:    schema.Shape{{Name: "text", Type: schema.TypeString, Required: true}},
//	    Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
//	        return registry.TextResult(args.String("text")), nil
//	    },
//	})
//
//	ch := transport.NewStdio(os.Stdin, os.Stdout)
//	srv := server.New(reg, ch,
//	    server.WithName("echo-server"),
//	    server.WithRequestTimeout(30*time.Second),
//	)
//
//	err := srv.Serve(ctx) // returns on cancellation, EOF or a channel fault
//	_ = srv.Shutdown(drainCtx)
//
// # Concurrency
//
// Requests run on their own goroutines while reading continues, bounded by
// WithMaxConcurrency. Handler contexts are not derived from the Serve
// context's cancellation: stopping the server stops reading, and Shutdown
// drains what was already accepted. A handler that outlives its timeout,
// or whose request the client cancels, gets the release grace to return
// before the timeout or cancellation response is written.
package server
