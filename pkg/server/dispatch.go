package server

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/observability"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
)

// stage is how far a request got through dispatch
type stage int

const (
	stageReceived stage = iota
	stageValidated
	stageInvoked
	stageResponded
)

func (s stage) String() string {
	switch s {
	case stageReceived:
		return "received"
	case stageValidated:
		return "validated"
	case stageInvoked:
		return "invoked"
	case stageResponded:
		return "responded"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// methodInvalid labels frames that never decoded into a request
const methodInvalid = "invalid"

// call carries one request through dispatch
type call struct {
	req    *protocol.Request
	id     string
	logger logging.Logger
	obs    *observability.Observation
	stage  stage

	kind string
	name string
}

func (c *call) advance(st stage) {
	if st > c.stage {
		c.stage = st
	}
}

func (c *call) capability(kind, name string) {
	c.kind = kind
	c.name = name
	c.obs.SetCapability(kind, name)
	c.logger = c.logger.WithFields(logging.String("capability", kind+":"+name))
}

// methodHandler answers one request method. A returned error becomes a
// JSON-RPC error response; tool failures are returned as results instead.
type methodHandler func(ctx context.Context, c *call) (any, error)

func (s *Server) handlers() map[string]methodHandler {
	return map[string]methodHandler{
		protocol.MethodInitialize:            s.handleInitialize,
		protocol.MethodPing:                  s.handlePing,
		protocol.MethodListTools:             s.handleListTools,
		protocol.MethodCallTool:              s.handleCallTool,
		protocol.MethodListResources:         s.handleListResources,
		protocol.MethodListResourceTemplates: s.handleListResourceTemplates,
		protocol.MethodReadResource:          s.handleReadResource,
		protocol.MethodListPrompts:           s.handleListPrompts,
		protocol.MethodGetPrompt:             s.handleGetPrompt,
	}
}

// HandleFrame implements transport.FrameHandler. Decoding, notifications and
// initialize are handled on the caller's goroutine; every other request runs
// on its own.
// Handler contexts keep ctx's values but not its cancellation, so stopping
// the read loop does not abort work already accepted.
func (s *Server) HandleFrame(ctx context.Context, frame []byte) {
	base := context.WithoutCancel(ctx)

	req, decodeErr := protocol.DecodeRequest(frame)
	if decodeErr != nil {
		s.rejectFrame(base, req, decodeErr)
		return
	}

	if req.IsNotification() {
		s.handleNotification(base, req)
		return
	}

	if s.closing.Load() {
		s.respondError(req.ID, mcperrors.Cancelled("server shutting down"), s.logger)
		return
	}

	reqCtx, cancel := context.WithCancelCause(base)
	entry := &inflight{method: req.Method, started: time.Now(), cancel: cancel}
	if !s.trackRequest(req.ID.Key(), entry) {
		cancel(nil)
		s.logger.Warn("Duplicate request id in flight", logging.String("request_id", req.ID.String()), logging.String("method", req.Method))
		s.respondError(protocol.NullID, mcperrors.InvalidRequest(fmt.Sprintf("request id %s is already in flight", req.ID.Key())), s.logger)
		return
	}

	// initialize completes before the next frame is read, so requests
	// pipelined behind it see the session as initialized
	if req.Method == protocol.MethodInitialize {
		s.serveRequest(reqCtx, cancel, req)
		return
	}
	go s.serveRequest(reqCtx, cancel, req)
}

func (s *Server) rejectFrame(ctx context.Context, req *protocol.Request, decodeErr *protocol.Error) {
	id := protocol.NullID
	if req != nil && !req.ID.IsZero() {
		id = req.ID
	}

	_, obs := s.observer.StartRequest(ctx, methodInvalid, id.String(), false)
	err := mcperrors.NewError(int(decodeErr.Code), mcperrors.CategoryProtocol, decodeErr.Message)
	s.logger.Warn("Rejected frame", logging.Int("code", int(decodeErr.Code)), logging.String("reason", decodeErr.Message))
	s.respondError(id, err, s.logger)
	obs.End(string(mcperrors.CategoryProtocol))
}

func (s *Server) serveRequest(ctx context.Context, cancel context.CancelCauseFunc, req *protocol.Request) {
	id := req.ID.String()
	defer s.completeRequest(req.ID.Key())
	defer cancel(nil)

	ctx, logger := logging.ForRequest(ctx, s.logger, id, req.Method)
	ctx, obs := s.observer.StartRequest(ctx, req.Method, id, true)
	c := &call{req: req, id: id, logger: logger, obs: obs}

	start := time.Now()
	result, err := s.dispatch(ctx, c)
	category := s.respond(c, result, err)

	c.obs.SetStage(c.stage.String())
	c.obs.End(category)

	fields := []logging.Field{
		logging.String("stage", c.stage.String()),
		logging.Duration("duration", time.Since(start)),
	}
	switch mcperrors.Category(category) {
	case "":
		c.logger.Debug("Request completed", fields...)
	case mcperrors.CategoryInternal:
		c.logger.WithError(err).Error("Request failed", append(fields, logging.String("category", category))...)
	default:
		c.logger.Info("Request failed", append(fields, logging.String("category", category))...)
	}
}

// dispatch routes one request, wrapping the whole route in a panic guard
func (s *Server) dispatch(ctx context.Context, c *call) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in request dispatch",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			result = nil
			err = mcperrors.InternalFault(c.req.Method, fmt.Errorf("panic: %v", r))
		}
	}()

	handler, ok := s.handlers()[c.req.Method]
	if !ok {
		return nil, mcperrors.MethodNotFound(c.req.Method)
	}
	if c.req.Method != protocol.MethodInitialize && c.req.Method != protocol.MethodPing && !s.isInitialized() {
		return nil, mcperrors.NotInitialized(c.req.Method)
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(ctx, ctx, c.req.Method, s.requestTimeout)
	}

	return handler(ctx, c)
}

// invoke runs a capability handler under the request timeout. A handler
// that overruns its budget or is cancelled gets the release grace to
// return before the request is answered without it. Panics become
// internal faults.
func invoke[T any](ctx context.Context, s *Server, c *call, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	var zero T
	operation := c.kind + " " + c.name

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return zero, contextError(ctx, ctx, operation, s.requestTimeout)
	}
	defer s.sem.Release(1)

	c.advance(stageInvoked)
	runCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic in capability handler",
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())),
				)
				done <- outcome{err: mcperrors.InternalFault(operation, fmt.Errorf("panic: %v", r))}
			}
		}()
		v, err := fn(runCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && runCtx.Err() != nil {
			return zero, contextError(ctx, runCtx, operation, s.requestTimeout)
		}
		return o.value, o.err
	case <-runCtx.Done():
	}

	grace := time.NewTimer(s.releaseGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		c.logger.Warn("Handler still running after release grace", logging.Duration("grace", s.releaseGrace))
	}
	return zero, contextError(ctx, runCtx, operation, s.requestTimeout)
}

// respond writes the one response for c and returns its error category
func (s *Server) respond(c *call, result any, err error) string {
	c.advance(stageResponded)

	if err != nil {
		s.respondError(c.req.ID, err, c.logger)
		return string(mcperrors.CategoryOf(err))
	}

	resp, encErr := protocol.NewResponse(c.req.ID, result)
	if encErr != nil {
		fault := mcperrors.InternalFault("encode_result", encErr)
		s.respondError(c.req.ID, fault, c.logger)
		return string(mcperrors.CategoryInternal)
	}
	s.send(resp, c.logger)

	if tr, ok := result.(*protocol.CallToolResult); ok && tr.IsError {
		return tr.Category()
	}
	return ""
}

func (s *Server) respondError(id protocol.ID, err error, logger logging.Logger) {
	s.send(protocol.NewErrorResponse(id, mcperrors.ToJSONRPCError(err)), logger)
}

func (s *Server) send(resp *protocol.Response, logger logging.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.WithError(err).Error("Failed to encode response")
		return
	}
	if err := s.channel.Send(data); err != nil {
		logger.WithError(err).Error("Failed to send response")
	}
}

// decodeParams unmarshals request params into target. Absent params leave
// target at its zero value.
func decodeParams(params json.RawMessage, target any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return mcperrors.InvalidParameter("params", mcperrors.ConstraintType, "params do not match the method's parameter object")
	}
	return nil
}
