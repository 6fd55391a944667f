package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
	"github.com/ajitpratap0/mcp-example-server/pkg/transport"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (r rpcResponse) category(t testing.TB) string {
	t.Helper()
	if r.Error != nil {
		var data struct {
			Category string `json:"category"`
		}
		require.NoError(t, json.Unmarshal(r.Error.Data, &data))
		return data.Category
	}
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(r.Result, &result))
	return result.Category()
}

func (r rpcResponse) toolResult(t testing.TB) protocol.CallToolResult {
	t.Helper()
	require.Nil(t, r.Error, "expected a result, got error %+v", r.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(r.Result, &result))
	return result
}

// sink collects newline-delimited responses written by the channel
type sink struct {
	mu      sync.Mutex
	partial bytes.Buffer
	lines   []rpcResponse
	raw     []string
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partial.Write(p)
	for {
		line, err := s.partial.ReadString('\n')
		if err != nil {
			s.partial.Reset()
			s.partial.WriteString(line)
			break
		}
		line = strings.TrimSpace(line)
		var resp rpcResponse
		if json.Unmarshal([]byte(line), &resp) == nil {
			s.lines = append(s.lines, resp)
		}
		s.raw = append(s.raw, line)
	}
	return len(p), nil
}

func (s *sink) all() []rpcResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rpcResponse(nil), s.lines...)
}

func (s *sink) rawLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.raw...)
}

func (s *sink) byID(id string) []rpcResponse {
	var out []rpcResponse
	for _, r := range s.all() {
		if string(r.ID) == id {
			out = append(out, r)
		}
	}
	return out
}

type harness struct {
	t      testing.TB
	in     *io.PipeWriter
	out    *sink
	srv    *Server
	cancel context.CancelFunc
	served chan error
	mu     sync.Mutex
	next   int
}

func newHarness(t testing.TB, reg *registry.Registry, opts ...ServerOption) *harness {
	t.Helper()

	inR, inW := io.Pipe()
	out := &sink{}
	ch := transport.NewStdio(inR, out)
	srv := New(reg, ch, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{t: t, in: inW, out: out, srv: srv, cancel: cancel, served: make(chan error, 1)}
	go func() { h.served <- srv.Serve(ctx) }()

	t.Cleanup(h.close)
	return h
}

func (h *harness) close() {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.srv.Shutdown(ctx)
	_ = h.in.Close()
}

// stop stops reading without draining
func (h *harness) stop() {
	h.cancel()
	select {
	case err := <-h.served:
		require.NoError(h.t, err)
	case <-time.After(2 * time.Second):
		h.t.Fatal("Serve did not return")
	}
}

func (h *harness) writeLine(line string) {
	h.t.Helper()
	_, err := h.in.Write([]byte(line + "\n"))
	require.NoError(h.t, err)
}

// request writes a request and returns its JSON id
func (h *harness) request(method string, params any) string {
	h.t.Helper()
	h.mu.Lock()
	h.next++
	id := fmt.Sprintf(`"req-%d"`, h.next)
	h.mu.Unlock()
	h.requestWithID(id, method, params)
	return id
}

func (h *harness) requestWithID(id, method string, params any) {
	h.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(id), "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	require.NoError(h.t, err)
	h.writeLine(string(data))
}

func (h *harness) notify(method string, params any) {
	h.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	require.NoError(h.t, err)
	h.writeLine(string(data))
}

func (h *harness) await(id string) rpcResponse {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return len(h.out.byID(id)) > 0 }, 3*time.Second, 5*time.Millisecond,
		"no response for id %s", id)
	got := h.out.byID(id)
	require.Len(h.t, got, 1, "exactly one response for id %s", id)
	return got[0]
}

func (h *harness) call(method string, params any) rpcResponse {
	h.t.Helper()
	return h.await(h.request(method, params))
}

func (h *harness) initialize() rpcResponse {
	h.t.Helper()
	resp := h.call(protocol.MethodInitialize, map[string]any{
		"protocolVersion": "2025-06-18",
		"clientInfo":      map[string]any{"name": "test-client", "version": "0.1"},
	})
	require.Nil(h.t, resp.Error)
	h.notify(protocol.MethodInitialized, nil)
	return resp
}

func (h *harness) callTool(name string, args any) rpcResponse {
	h.t.Helper()
	return h.call(protocol.MethodCallTool, map[string]any{"name": name, "arguments": args})
}

// fixtures counts handler activity for the test registry
type fixtures struct {
	echoCalls atomic.Int32
	released  atomic.Int32
	started   chan string
}

func newTestRegistry(t testing.TB) (*registry.Registry, *fixtures) {
	t.Helper()
	fx := &fixtures{started: make(chan string, 16)}
	reg := registry.New()

	reg.MustRegister(
		registry.Tool{
			Name:     "echo",
			Metadata: registry.Metadata{Title: "Echo", Description: "Repeats text"},
			Input:    schema.Shape{{Name: "text", Type: schema.TypeString, Required: true}},
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				fx.echoCalls.Add(1)
				return registry.TextResult(args.String("text")), nil
			},
		},
		registry.Tool{
			Name: "refuse",
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				return &protocol.CallToolResult{Content: []protocol.Content{protocol.TextContent("cannot do that")}, IsError: true}, nil
			},
		},
		registry.Tool{
			Name: "boom",
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				panic("secret panic value")
			},
		},
		registry.Tool{
			Name: "leaky",
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				return nil, errors.New("dial tcp db:3306 password=hunter2")
			},
		},
		registry.Tool{
			Name: "wait",
			Input: schema.Shape{
				{Name: "ms", Type: schema.TypeInteger, Default: 10000},
				{Name: "tag", Type: schema.TypeString, Default: ""},
			},
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				defer fx.released.Add(1)
				fx.started <- args.String("tag")
				select {
				case <-time.After(time.Duration(args.Int("ms")) * time.Millisecond):
					return registry.TextResult("done"), nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			},
		},
		registry.Tool{
			Name:  "stubborn",
			Input: schema.Shape{{Name: "ms", Type: schema.TypeInteger, Default: 300}},
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				defer fx.released.Add(1)
				time.Sleep(time.Duration(args.Int("ms")) * time.Millisecond)
				return registry.TextResult("late"), nil
			},
		},
		registry.Resource{
			Name:     "readme",
			Metadata: registry.Metadata{MIMEType: "text/markdown"},
			URI:      "file://README.md",
			Handler: func(ctx context.Context, uri string, _ registry.Bindings) ([]protocol.ResourceContents, error) {
				return []protocol.ResourceContents{{URI: uri, MIMEType: "text/markdown", Text: "# Readme"}}, nil
			},
		},
		registry.Resource{
			Name:        "profile",
			Metadata:    registry.Metadata{MIMEType: "application/json"},
			URITemplate: "user://{userId}/profile",
			Handler: func(ctx context.Context, uri string, b registry.Bindings) ([]protocol.ResourceContents, error) {
				return []protocol.ResourceContents{{URI: uri, MIMEType: "application/json", Text: `{"id":"` + b["userId"] + `"}`}}, nil
			},
		},
		registry.Prompt{
			Name:      "greet",
			Arguments: schema.Shape{{Name: "name", Type: schema.TypeString, Required: true}},
			Handler: func(ctx context.Context, args schema.Args) (*protocol.GetPromptResult, error) {
				return &protocol.GetPromptResult{
					Description: "Greeting",
					Messages: []protocol.PromptMessage{{
						Role:    "user",
						Content: protocol.TextContent("Say hello to " + args.String("name")),
					}},
				}, nil
			},
		},
	)
	return reg, fx
}

func (fx *fixtures) awaitStart(t testing.TB) string {
	t.Helper()
	select {
	case tag := <-fx.started:
		return tag
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not start")
		return ""
	}
}
