package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
)

// lockedBuffer is a bytes.Buffer safe for the concurrent writes in these tests
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type frameCollector struct {
	mu     sync.Mutex
	frames []string
}

func (c *frameCollector) handle(_ context.Context, frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(frame))
}

func (c *frameCollector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestStdioChannel_SendWritesOneLine(t *testing.T) {
	var out lockedBuffer
	ch := NewStdio(strings.NewReader(""), &out)

	require.NoError(t, ch.Send([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)))
	assert.Equal(t, "{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{}}\n", out.String())
}

func TestStdioChannel_SendRejectsEmbeddedNewline(t *testing.T) {
	var out lockedBuffer
	ch := NewStdio(strings.NewReader(""), &out)

	err := ch.Send([]byte("{\n}"))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport))
	assert.Empty(t, out.String())
}

func TestStdioChannel_ConcurrentSendsDoNotInterleave(t *testing.T) {
	var out lockedBuffer
	ch := NewStdio(strings.NewReader(""), &out)

	payload := []byte(`{"jsonrpc":"2.0","id":"x","result":{"text":"` + strings.Repeat("a", 4096) + `"}}`)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ch.Send(payload))
		}()
	}
	wg.Wait()

	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	lines := 0
	for scanner.Scan() {
		assert.Equal(t, string(payload), scanner.Text())
		lines++
	}
	assert.Equal(t, 32, lines)
}

func TestStdioChannel_ServeDeliversFramesInOrder(t *testing.T) {
	input := "{\"id\":1}\n\n   \n{\"id\":2}\r\n{\"id\":3}"
	ch := NewStdio(strings.NewReader(input), io.Discard)

	var got frameCollector
	err := ch.Serve(context.Background(), got.handle)
	require.NoError(t, err, "EOF is a clean end of input")
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`, `{"id":3}`}, got.all())
}

func TestStdioChannel_OversizedLineIsTransportFault(t *testing.T) {
	input := "{\"id\":1}\n" + strings.Repeat("x", 2048) + "\n{\"id\":2}\n"
	ch := NewStdio(strings.NewReader(input), io.Discard, WithMaxMessageBytes(1024))

	var got frameCollector
	err := ch.Serve(context.Background(), got.handle)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport))
	assert.Equal(t, []string{`{"id":1}`}, got.all())
}

func TestStdioChannel_ContextCancellationStopsReading(t *testing.T) {
	inR, inW := io.Pipe()
	defer inW.Close()

	ch := NewStdio(inR, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())

	var got frameCollector
	done := make(chan error, 1)
	go func() { done <- ch.Serve(ctx, got.handle) }()

	_, err := inW.Write([]byte("{\"id\":1}\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestStdioChannel_CloseStopsServeAndSend(t *testing.T) {
	inR, inW := io.Pipe()
	defer inW.Close()

	var out lockedBuffer
	ch := NewStdio(inR, &out)

	done := make(chan error, 1)
	go func() { done <- ch.Serve(context.Background(), func(context.Context, []byte) {}) }()

	require.NoError(t, ch.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	err := ch.Send([]byte(`{}`))
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, ch.Close(), "Close is idempotent")
}

func TestStdioChannel_PanickingHandlerDoesNotStopReading(t *testing.T) {
	input := "first\nsecond\n"
	ch := NewStdio(strings.NewReader(input), io.Discard)

	var got frameCollector
	err := ch.Serve(context.Background(), func(ctx context.Context, frame []byte) {
		if string(frame) == "first" {
			panic("boom")
		}
		got.handle(ctx, frame)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, got.all())
}

func TestStdioChannel_ReadErrorIsTransportFault(t *testing.T) {
	ch := NewStdio(&failingReader{err: errors.New("device gone")}, io.Discard)

	err := ch.Serve(context.Background(), func(context.Context, []byte) {})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport))
	assert.Contains(t, err.Error(), "device gone")
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

type recordingRecorder struct {
	mu       sync.Mutex
	received []int
	sent     []int
	errs     int
}

func (r *recordingRecorder) FrameReceived(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, size)
}

func (r *recordingRecorder) FrameSent(size int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, size)
	if err != nil {
		r.errs++
	}
}

func TestObservabilityMiddleware(t *testing.T) {
	recorder := &recordingRecorder{}
	mw := NewObservabilityMiddleware(recorder)

	var out lockedBuffer
	ch := ChainMiddleware(mw).Wrap(NewStdio(strings.NewReader("abc\nde\n"), &out))

	require.NoError(t, ch.Serve(context.Background(), func(context.Context, []byte) {}))
	require.NoError(t, ch.Send([]byte("1234")))
	require.NoError(t, ch.Close())
	assert.Error(t, ch.Send([]byte("late")))

	snap := mw.Snapshot()
	assert.Equal(t, int64(2), snap.FramesReceived)
	assert.Equal(t, int64(5), snap.BytesReceived)
	assert.Equal(t, int64(1), snap.FramesSent)
	assert.Equal(t, int64(4), snap.BytesSent)
	assert.Equal(t, int64(1), snap.SendErrors)
	assert.Contains(t, snap.String(), "received 2 frames")

	assert.Equal(t, []int{3, 2}, recorder.received)
	assert.Equal(t, []int{4, 4}, recorder.sent)
	assert.Equal(t, 1, recorder.errs)
}

func TestChainMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return MiddlewareFunc(func(c Channel) Channel {
			return &taggingChannel{middlewareChannel: middlewareChannel{next: c}, name: name, order: &order}
		})
	}

	ch := ChainMiddleware(tag("outer"), tag("inner")).Wrap(NewStdio(strings.NewReader(""), io.Discard))
	require.NoError(t, ch.Send([]byte("x")))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type taggingChannel struct {
	middlewareChannel
	name  string
	order *[]string
}

func (c *taggingChannel) Send(data []byte) error {
	*c.order = append(*c.order, c.name)
	return c.next.Send(data)
}
