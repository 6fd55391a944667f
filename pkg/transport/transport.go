package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send after the channel is closed
var ErrClosed = errors.New("transport closed")

// FrameHandler receives one inbound frame. The slice is owned by the
// handler. Serve calls it from a single goroutine, in arrival order.
type FrameHandler func(ctx context.Context, frame []byte)

// Sender is the write half of a channel
type Sender interface {
	// Send writes one frame. Concurrent calls never interleave.
	Send(data []byte) error
}

// Channel is a bidirectional, line-framed message channel
type Channel interface {
	Sender

	// Serve reads frames and hands each to handle until the input ends, ctx
	// is cancelled or Close is called, all of which return nil. A read fault
	// returns a transport-category error.
	Serve(ctx context.Context, handle FrameHandler) error

	// Close stops reading, flushes pending output and rejects further sends
	Close() error
}
