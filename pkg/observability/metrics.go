package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification, added as constant labels
	ServiceName    string
	ServiceVersion string

	Namespace        string    // Prometheus namespace (default: mcp)
	MetricsPath      string    // HTTP path for the endpoint (default: /metrics)
	HistogramBuckets []float64 // Latency buckets in seconds
}

// Metrics owns a private Prometheus registry with the server's collectors.
// It also implements transport.FrameRecorder.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	capabilityCalls *prometheus.CounterVec
	inflight        prometheus.Gauge

	framesTotal     *prometheus.CounterVec
	frameBytesTotal *prometheus.CounterVec
	sendErrors      prometheus.Counter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}

	constLabels := prometheus.Labels{}
	if config.ServiceName != "" {
		constLabels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		constLabels["version"] = config.ServiceVersion
	}

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	m.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "requests_total",
			Help:        "Total number of handled messages by method and outcome",
			ConstLabels: constLabels,
		},
		[]string{"method", "outcome"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "request_duration_seconds",
			Help:        "Time from receiving a request to writing its response",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)

	m.capabilityCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "capability_calls_total",
			Help:        "Capability invocations by kind, name and result category",
			ConstLabels: constLabels,
		},
		[]string{"kind", "name", "category"},
	)

	m.inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "inflight_requests",
			Help:        "Requests currently being handled",
			ConstLabels: constLabels,
		},
	)

	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "transport",
			Name:        "frames_total",
			Help:        "Frames moved over the channel by direction",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.frameBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "transport",
			Name:        "bytes_total",
			Help:        "Frame payload bytes moved over the channel by direction",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.sendErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "transport",
			Name:        "send_errors_total",
			Help:        "Frames that could not be written",
			ConstLabels: constLabels,
		},
	)

	collectors := []prometheus.Collector{
		m.requestTotal,
		m.requestDuration,
		m.capabilityCalls,
		m.inflight,
		m.framesTotal,
		m.frameBytesTotal,
		m.sendErrors,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one handled message
func (m *Metrics) RecordRequest(method, outcome string, duration time.Duration) {
	m.requestTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCapabilityCall records the result category of one capability invocation
func (m *Metrics) RecordCapabilityCall(kind, name, category string) {
	m.capabilityCalls.WithLabelValues(kind, name, category).Inc()
}

// AddInflight moves the in-flight gauge by delta
func (m *Metrics) AddInflight(delta int) {
	m.inflight.Add(float64(delta))
}

// FrameReceived implements transport.FrameRecorder
func (m *Metrics) FrameReceived(size int) {
	m.framesTotal.WithLabelValues("in").Inc()
	m.frameBytesTotal.WithLabelValues("in").Add(float64(size))
}

// FrameSent implements transport.FrameRecorder
func (m *Metrics) FrameSent(size int, err error) {
	if err != nil {
		m.sendErrors.Inc()
		return
	}
	m.framesTotal.WithLabelValues("out").Inc()
	m.frameBytesTotal.WithLabelValues("out").Add(float64(size))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Start binds addr and serves metrics on it in the background. The bind
// happens before Start returns so an unusable address is reported here.
func (m *Metrics) Start(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return errors.New("metrics server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.MetricsPath, m.Handler())

	m.listener = ln
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.server
	go func() {
		_ = srv.Serve(ln)
	}()
	return nil
}

// Addr returns the bound address, or "" when the server is not running
func (m *Metrics) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Shutdown gracefully stops the metrics server if it was started
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.server = nil
	m.listener = nil
	m.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
