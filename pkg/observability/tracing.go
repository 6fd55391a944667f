// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the server.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ExporterType defines the type of trace exporter
type ExporterType string

const (
	// ExporterNone disables tracing
	ExporterNone ExporterType = "none"

	// ExporterOTLPGRPC exports traces via OTLP over gRPC
	ExporterOTLPGRPC ExporterType = "otlp-grpc"

	// ExporterOTLPHTTP exports traces via OTLP over HTTP
	ExporterOTLPHTTP ExporterType = "otlp-http"
)

const instrumentationName = "github.com/ajitpratap0/mcp-example-server"

// TracingConfig configures OpenTelemetry tracing
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	Exporter ExporterType
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept, 0.0 to 1.0
	SampleRate float64
}

// Tracing hands out the tracer used for request spans
type Tracing struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewTracing builds the provider for the configured exporter. ExporterNone
// and an empty exporter yield a no-op tracer.
func NewTracing(ctx context.Context, config TracingConfig) (*Tracing, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch config.Exporter {
	case "", ExporterNone:
		return NoopTracing(), nil
	case ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", config.Exporter, err)
	}

	return NewTracingWithProcessor(config, sdktrace.NewBatchSpanProcessor(exporter)), nil
}

// NewTracingWithProcessor builds a provider around an existing span
// processor, such as a synchronous in-memory exporter in tests
func NewTracingWithProcessor(config TracingConfig, processor sdktrace.SpanProcessor) *Tracing {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(newResource(config)),
		sdktrace.WithSampler(newSampler(config.SampleRate)),
	)
	return &Tracing{
		tracer:   tp.Tracer(instrumentationName),
		shutdown: tp.Shutdown,
	}
}

// NoopTracing returns a Tracing whose spans are never recorded
func NoopTracing() *Tracing {
	return &Tracing{
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
		shutdown: func(context.Context) error { return nil },
	}
}

func newResource(config TracingConfig) *resource.Resource {
	name := config.ServiceName
	if name == "" {
		name = "mcp-example-server"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if config.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(config.ServiceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// StartMethodSpan starts the server span for one MCP message
func (t *Tracing) StartMethodSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(AttrMethod, method)),
		trace.WithAttributes(attrs...),
	}
	return t.tracer.Start(ctx, "mcp."+method, opts...)
}

// Shutdown flushes pending spans and stops the exporter
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}
