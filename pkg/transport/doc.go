// Package transport provides the line-framed message channel the server
// speaks over.
//
// # StdioChannel
//
// StdioChannel reads one message per line from an io.Reader and writes one
// message per line to an io.Writer, normally the process's stdin and
// stdout. Reading happens on a single goroutine; frames are handed to the
// caller's FrameHandler in arrival order. Writes are serialized and flushed
// one frame at a time, so concurrent responders never interleave output.
//
// Lines longer than the configured limit (4 MiB by default) end Serve with
// a transport-category error. End of input, context cancellation and Close
// end Serve cleanly:
//
//	ch := transport.NewStdio(os.Stdin, os.Stdout,
//	    transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
//	    transport.WithLogger(logger),
//	)
//	err := ch.Serve(ctx, func(ctx context.Context, frame []byte) {
//	    dispatcher.HandleFrame(ctx, frame)
//	})
//
// Cancelling the Serve context stops reading but leaves Send working, so
// responses to requests already in flight can still be written. Close stops
// both.
//
// # Middleware
//
// Channels compose with Middleware. ObservabilityMiddleware counts frames
// and bytes in each direction and reports them to a FrameRecorder such as
// the server's metrics provider.
package transport
