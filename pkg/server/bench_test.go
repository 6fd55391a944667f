package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ajitpratap0/mcp-example-server/pkg/transport"
)

// lineSignal reports every complete line written to it
type lineSignal struct {
	lines chan struct{}
}

func (s *lineSignal) Write(p []byte) (int, error) {
	for range bytes.Count(p, []byte{'\n'}) {
		s.lines <- struct{}{}
	}
	return len(p), nil
}

func startBenchServer(b *testing.B, opts ...ServerOption) (*io.PipeWriter, *lineSignal) {
	b.Helper()
	reg, _ := newTestRegistry(b)

	inR, inW := io.Pipe()
	out := &lineSignal{lines: make(chan struct{}, 1024)}
	srv := New(reg, transport.NewStdio(inR, out), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	b.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		_ = inW.Close()
	})

	send(b, inW, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"bench","version":"1"}}}`)
	<-out.lines
	send(b, inW, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	return inW, out
}

func send(b *testing.B, w io.Writer, line string) {
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkDispatch(b *testing.B) {
	b.Run("Ping", func(b *testing.B) {
		in, out := startBenchServer(b)
		b.ReportAllocs()
		b.ResetTimer()
		for i := range b.N {
			send(b, in, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"ping"}`, i+1))
			<-out.lines
		}
	})

	b.Run("ToolsCall", func(b *testing.B) {
		in, out := startBenchServer(b)
		b.ReportAllocs()
		b.ResetTimer()
		for i := range b.N {
			send(b, in, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`, i+1))
			<-out.lines
		}
	})

	for _, inFlight := range []int{10, 100} {
		b.Run(fmt.Sprintf("Pipelined/%d", inFlight), func(b *testing.B) {
			in, out := startBenchServer(b, WithMaxConcurrency(16))
			b.ReportAllocs()
			b.ResetTimer()
			for i := range b.N {
				for j := range inFlight {
					send(b, in, fmt.Sprintf(`{"jsonrpc":"2.0","id":"%d-%d","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`, i, j))
				}
				for range inFlight {
					<-out.lines
				}
			}
		})
	}
}
