package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
)

const (
	// DefaultMaxMessageBytes is the default limit on one inbound line
	DefaultMaxMessageBytes = 4 << 20

	initialBufferBytes = 64 << 10

	// stopWait bounds how long Serve waits for a blocked read to notice a
	// stop request. A read on a terminal or plain pipe may not unblock on
	// Close at all.
	stopWait = 100 * time.Millisecond
)

// StdioChannel frames messages as newline-delimited lines over a reader
// and a writer, normally os.Stdin and os.Stdout.
type StdioChannel struct {
	reader          io.Reader
	writer          *bufio.Writer
	maxMessageBytes int
	logger          logging.Logger

	mutex    sync.Mutex // guards writer and closed
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a StdioChannel
type Option func(*StdioChannel)

// WithMaxMessageBytes sets the largest accepted inbound line
func WithMaxMessageBytes(n int) Option {
	return func(t *StdioChannel) {
		if n > 0 {
			t.maxMessageBytes = n
		}
	}
}

// WithLogger sets the logger for channel-level events
func WithLogger(logger logging.Logger) Option {
	return func(t *StdioChannel) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewStdio creates a channel reading frames from r and writing frames to w
func NewStdio(r io.Reader, w io.Writer, opts ...Option) *StdioChannel {
	t := &StdioChannel{
		reader:          r,
		writer:          bufio.NewWriter(w),
		maxMessageBytes: DefaultMaxMessageBytes,
		logger:          logging.Nop(),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithFields(logging.String("component", "StdioChannel"))
	return t
}

// Serve implements Channel
func (t *StdioChannel) Serve(ctx context.Context, handle FrameHandler) error {
	g, gctx := errgroup.WithContext(ctx)

	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, min(initialBufferBytes, t.maxMessageBytes)), t.maxMessageBytes)

	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)

		for scanner.Scan() {
			if t.stopping(gctx) {
				return nil
			}

			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			data := make([]byte, len(line))
			copy(data, line)
			t.dispatch(ctx, handle, data)
		}

		err := scanner.Err()
		switch {
		case err == nil:
			t.logger.Debug("Input closed")
			return nil
		case errors.Is(err, bufio.ErrTooLong):
			return mcperrors.MessageTooLarge(t.maxMessageBytes).
				WithContext(&mcperrors.Context{
					Component: "StdioChannel",
					Operation: "scan_input",
					Timestamp: time.Now(),
				})
		case t.stopping(gctx):
			return nil
		default:
			return mcperrors.ChannelError("read_input", err).
				WithContext(&mcperrors.Context{
					Component: "StdioChannel",
					Operation: "scan_input",
					Timestamp: time.Now(),
				})
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			t.closeReader()
		case <-t.done:
			t.closeReader()
		case <-scannerDone:
		}
		return nil
	})

	result := make(chan error, 1)
	go func() { result <- g.Wait() }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
	case <-t.done:
	}

	select {
	case err := <-result:
		return err
	case <-time.After(stopWait):
		t.logger.Debug("Reader still blocked after stop, not waiting for it")
		return nil
	}
}

func (t *StdioChannel) dispatch(ctx context.Context, handle FrameHandler, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Panic in frame handler",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	handle(ctx, data)
}

func (t *StdioChannel) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *StdioChannel) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Send implements Sender. The frame must not contain a newline.
func (t *StdioChannel) Send(data []byte) error {
	if bytes.IndexByte(data, '\n') >= 0 {
		return mcperrors.ChannelError("send_message", fmt.Errorf("frame contains a newline"))
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return mcperrors.ChannelError("send_message", ErrClosed)
	}

	if _, err := t.writer.Write(data); err != nil {
		return mcperrors.ChannelError("send_message", err).
			WithContext(&mcperrors.Context{Component: "StdioChannel", Operation: "write_data", Timestamp: time.Now()})
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return mcperrors.ChannelError("send_message", err).
			WithContext(&mcperrors.Context{Component: "StdioChannel", Operation: "write_newline", Timestamp: time.Now()})
	}
	if err := t.writer.Flush(); err != nil {
		return mcperrors.ChannelError("send_message", err).
			WithContext(&mcperrors.Context{Component: "StdioChannel", Operation: "flush_output", Timestamp: time.Now()})
	}
	return nil
}

// Close implements Channel. It is safe to call more than once.
func (t *StdioChannel) Close() error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mutex.Lock()
		t.closed = true
		flushErr = t.writer.Flush()
		t.mutex.Unlock()

		t.closeReader()
	})

	if flushErr != nil {
		return mcperrors.ChannelError("stop", flushErr).
			WithContext(&mcperrors.Context{Component: "StdioChannel", Operation: "flush_on_stop", Timestamp: time.Now()})
	}
	return nil
}
