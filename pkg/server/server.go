package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/observability"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
	"github.com/ajitpratap0/mcp-example-server/pkg/transport"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultReleaseGrace   = 2 * time.Second
	DefaultMaxConcurrency = 16

	// sendWait is how long Shutdown waits for cancelled requests to write
	// their responses after the release grace has passed
	sendWait = 250 * time.Millisecond
)

// Server dispatches MCP requests read from a channel to the capabilities
// in a registry
type Server struct {
	registry *registry.Registry
	channel  transport.Channel

	name         string
	version      string
	instructions string

	requestTimeout time.Duration
	releaseGrace   time.Duration
	maxConcurrency int64
	sem            *semaphore.Weighted

	logger   logging.Logger
	observer *observability.Observer

	// Session state
	initialized     bool
	sessionID       string
	initializedLock sync.RWMutex

	// Request tracking for cancellation and drain
	activeRequests     map[string]*inflight
	activeRequestsLock sync.Mutex
	wg                 sync.WaitGroup
	closing            atomic.Bool
}

type inflight struct {
	method  string
	started time.Time
	cancel  context.CancelCauseFunc
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithName sets the server name reported by initialize
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// WithVersion sets the server version reported by initialize
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithInstructions sets the usage hint returned by initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the metrics and tracing observer
func WithObserver(observer *observability.Observer) ServerOption {
	return func(s *Server) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithRequestTimeout bounds each handler invocation
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithReleaseGrace sets how long a timed-out or cancelled handler may keep
// running before its response is written anyway
func WithReleaseGrace(d time.Duration) ServerOption {
	return func(s *Server) {
		if d >= 0 {
			s.releaseGrace = d
		}
	}
}

// WithMaxConcurrency bounds how many requests run at once
func WithMaxConcurrency(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxConcurrency = int64(n)
		}
	}
}

// New creates a server answering on ch with the capabilities in reg
func New(reg *registry.Registry, ch transport.Channel, options ...ServerOption) *Server {
	s := &Server{
		registry:       reg,
		channel:        ch,
		name:           "mcp-example-server",
		version:        "1.0.0",
		requestTimeout: DefaultRequestTimeout,
		releaseGrace:   DefaultReleaseGrace,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         logging.Nop(),
		observer:       observability.NewObserver(nil, nil),
		activeRequests: make(map[string]*inflight),
	}

	for _, option := range options {
		option(s)
	}

	s.sem = semaphore.NewWeighted(s.maxConcurrency)
	s.logger = s.logger.WithFields(logging.String("component", "Server"))
	return s
}

// Serve freezes the registry and handles frames until ctx is cancelled,
// input ends or the channel fails. Requests still in flight keep running;
// call Shutdown to drain them.
func (s *Server) Serve(ctx context.Context) error {
	s.registry.Freeze()

	counts := s.registry.Counts()
	s.logger.Info("Server ready",
		logging.String("name", s.name),
		logging.String("version", s.version),
		logging.Int("tools", counts[registry.KindTool]),
		logging.Int("resources", counts[registry.KindResource]),
		logging.Int("prompts", counts[registry.KindPrompt]),
		logging.Int64("max_concurrency", s.maxConcurrency),
		logging.Duration("request_timeout", s.requestTimeout),
	)

	err := s.channel.Serve(ctx, s.HandleFrame)
	if err != nil {
		s.logger.WithError(err).Error("Channel failed")
		return err
	}
	s.logger.Info("Stopped reading requests")
	return nil
}

// Shutdown waits for in-flight requests to finish and closes the channel.
// When ctx ends first the remaining requests are cancelled, given the
// release grace to return, and ctx's error is reported.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	var drainErr error
	select {
	case <-drained:
		s.logger.Info("In-flight requests drained")
	case <-ctx.Done():
		n := s.cancelAll("server shutting down")
		s.logger.Warn("Shutdown deadline reached, cancelling in-flight requests", logging.Int("count", n))

		timer := time.NewTimer(s.releaseGrace + sendWait)
		select {
		case <-drained:
		case <-timer.C:
			s.logger.Error("Requests still running after cancellation", logging.Int("count", s.InFlight()))
		}
		timer.Stop()
		drainErr = ctx.Err()
	}

	if err := s.channel.Close(); err != nil {
		return errors.Join(drainErr, err)
	}
	return drainErr
}

// InFlight returns the number of requests currently tracked
func (s *Server) InFlight() int {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	return len(s.activeRequests)
}

func (s *Server) isInitialized() bool {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.initialized
}

// SessionID returns the id issued by initialize, or "" before it
func (s *Server) SessionID() string {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.sessionID
}

// trackRequest registers an in-flight request under its ID.Key. It fails
// when the key is already in flight.
func (s *Server) trackRequest(requestID string, req *inflight) bool {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	if _, exists := s.activeRequests[requestID]; exists {
		return false
	}
	s.activeRequests[requestID] = req
	s.wg.Add(1)
	return true
}

// completeRequest removes a finished request
func (s *Server) completeRequest(requestID string) {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	if _, exists := s.activeRequests[requestID]; exists {
		delete(s.activeRequests, requestID)
		s.wg.Done()
	}
}

// cancelRequest cancels a specific request by id. The request stays
// tracked until it has written its response.
func (s *Server) cancelRequest(requestID, reason string) bool {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	req, exists := s.activeRequests[requestID]
	if !exists {
		return false
	}
	req.cancel(errors.New(reason))
	return true
}

func (s *Server) cancelAll(reason string) int {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	for _, req := range s.activeRequests {
		req.cancel(errors.New(reason))
	}
	return len(s.activeRequests)
}

// contextError classifies why ctx ended for a handler with the given budget
func contextError(parent, ctx context.Context, operation string, budget time.Duration) error {
	if parent.Err() != nil {
		reason := "cancelled"
		if cause := context.Cause(parent); cause != nil && !errors.Is(cause, context.Canceled) {
			reason = cause.Error()
		}
		return mcperrors.Cancelled(reason)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return mcperrors.Timeout(operation, budget)
	}
	return mcperrors.InternalFault(operation, fmt.Errorf("context ended: %w", ctx.Err()))
}
