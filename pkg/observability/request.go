package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
const (
	AttrMethod     = "mcp.method"
	AttrRequestID  = "mcp.request_id"
	AttrKind       = "mcp.capability.kind"
	AttrCapability = "mcp.capability.name"
	AttrStage      = "mcp.stage"
	AttrCategory   = "mcp.error.category"
)

// OutcomeOK labels a request that completed without an error category
const OutcomeOK = "ok"

// Observer ties metrics and tracing together for the dispatcher. Either
// part may be nil.
type Observer struct {
	metrics *Metrics
	tracing *Tracing
}

// NewObserver creates an observer over the given providers
func NewObserver(metrics *Metrics, tracing *Tracing) *Observer {
	if tracing == nil {
		tracing = NoopTracing()
	}
	return &Observer{metrics: metrics, tracing: tracing}
}

// Metrics returns the metrics provider, which may be nil
func (o *Observer) Metrics() *Metrics {
	return o.metrics
}

// Observation follows one message from receipt to response
type Observation struct {
	observer *Observer
	method   string
	span     trace.Span
	start    time.Time
	tracked  bool

	kind string
	name string
}

// StartRequest opens the span for a message and, for requests that expect a
// response, counts it as in flight until End
func (o *Observer) StartRequest(ctx context.Context, method, requestID string, expectsResponse bool) (context.Context, *Observation) {
	var attrs []attribute.KeyValue
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	ctx, span := o.tracing.StartMethodSpan(ctx, method, attrs...)

	if expectsResponse && o.metrics != nil {
		o.metrics.AddInflight(1)
	}

	return ctx, &Observation{
		observer: o,
		method:   method,
		span:     span,
		start:    time.Now(),
		tracked:  expectsResponse,
	}
}

// SetCapability records which capability the message addresses
func (r *Observation) SetCapability(kind, name string) {
	r.kind = kind
	r.name = name
	r.span.SetAttributes(
		attribute.String(AttrKind, kind),
		attribute.String(AttrCapability, name),
	)
}

// SetStage records the furthest dispatch stage reached
func (r *Observation) SetStage(stage string) {
	r.span.SetAttributes(attribute.String(AttrStage, stage))
}

// End closes the observation. An empty category means success.
func (r *Observation) End(category string) {
	outcome := category
	if outcome == "" {
		outcome = OutcomeOK
		r.span.SetStatus(codes.Ok, "")
	} else {
		r.span.SetAttributes(attribute.String(AttrCategory, category))
		r.span.SetStatus(codes.Error, category)
	}
	r.span.End()

	m := r.observer.metrics
	if m == nil {
		return
	}
	if r.tracked {
		m.AddInflight(-1)
	}
	m.RecordRequest(r.method, outcome, time.Since(r.start))
	if r.kind != "" {
		m.RecordCapabilityCall(r.kind, r.name, outcome)
	}
}
