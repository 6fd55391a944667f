package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ajitpratap0/mcp-example-server/pkg/config"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/observability"
	"github.com/ajitpratap0/mcp-example-server/pkg/server"
	"github.com/ajitpratap0/mcp-example-server/pkg/transport"
)

const instructions = "Example server exposing arithmetic, system information, mock data and read-only SQL tools, " +
	"a README and user profile resources, and prompt templates for explanations, code review and project planning."

// telemetryFlushTimeout bounds flushing spans and stopping the metrics listener
const telemetryFlushTimeout = 5 * time.Second

// serve runs the server until stdin ends, a signal arrives or the channel
// fails. It returns an error only for startup failures and channel faults.
func serve(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	logger, err := logging.NewFromConfig(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = logger.WithFields(logging.String("service", cfg.Name))

	if f, ok := stdin.(*os.File); ok {
		if _, err := f.Stat(); err != nil {
			return fmt.Errorf("stdin is not usable: %w", err)
		}
	}

	metrics, err := observability.NewMetrics(observability.MetricsConfig{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
	})
	if err != nil {
		return fmt.Errorf("build metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		if err := metrics.Start(cfg.MetricsAddr); err != nil {
			return err
		}
		logger.Info("Metrics endpoint listening", logging.String("addr", metrics.Addr()))
	}

	tracing, err := observability.NewTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Exporter:       observability.ExporterType(cfg.Tracing.Exporter),
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		stopTelemetry(logger, metrics, nil)
		return fmt.Errorf("build tracing: %w", err)
	}
	defer stopTelemetry(logger, metrics, tracing)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	stdio := transport.NewStdio(stdin, stdout,
		transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
		transport.WithLogger(logger),
	)
	frames := transport.NewObservabilityMiddleware(metrics)
	channel := transport.ChainMiddleware(frames).Wrap(stdio)

	srv := server.New(reg, channel,
		server.WithName(cfg.Name),
		server.WithVersion(cfg.Version),
		server.WithInstructions(instructions),
		server.WithLogger(logger),
		server.WithObserver(observability.NewObserver(metrics, tracing)),
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithReleaseGrace(cfg.ReleaseGrace),
		server.WithMaxConcurrency(cfg.MaxConcurrency),
	)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := srv.Serve(sigCtx)
	switch {
	case serveErr != nil:
		logger.WithError(serveErr).Error("Channel fault, shutting down")
	case sigCtx.Err() != nil:
		logger.Info("Received shutdown signal, draining in-flight requests")
	default:
		logger.Info("Input closed, draining in-flight requests")
	}
	stop()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached before all requests finished", logging.Duration("timeout", cfg.ShutdownTimeout))
		} else {
			logger.WithError(err).Warn("Channel close failed")
		}
	}

	totals := frames.Snapshot()
	logger.Info("Server stopped",
		logging.Int64("frames_received", totals.FramesReceived),
		logging.Int64("frames_sent", totals.FramesSent),
		logging.Int64("send_errors", totals.SendErrors),
		logging.String("transport", totals.String()),
	)
	return serveErr
}

func stopTelemetry(logger logging.Logger, metrics *observability.Metrics, tracing *observability.Tracing) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()

	if tracing != nil {
		if err := tracing.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Tracer shutdown failed")
		}
	}
	if err := metrics.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Metrics endpoint shutdown failed")
	}
}
