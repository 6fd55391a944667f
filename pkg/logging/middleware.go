package logging

import (
	"context"
	"time"
)

// ForRequest derives the logger for one inbound request and attaches it,
// together with the request id, to ctx.
func ForRequest(ctx context.Context, logger Logger, requestID, method string) (context.Context, Logger) {
	reqLogger := logger.WithFields(
		String(requestIDField, requestID),
		String("method", method),
	)
	ctx = ContextWithRequestID(ctx, requestID)
	ctx = ContextWithLogger(ctx, reqLogger)
	return ctx, reqLogger
}

// Track runs op with a logger scoped to operation attached to its context.
// Completion is logged at debug level and failure at warn level, both with
// the elapsed time.
func Track(ctx context.Context, logger Logger, operation string, op func(context.Context) error) error {
	logger = logger.WithFields(String("operation", operation))

	start := time.Now()
	err := op(ContextWithLogger(ctx, logger))
	if err != nil {
		logger.WithError(err).Warn("Operation failed", Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Debug("Operation completed", Duration("elapsed", time.Since(start)))
	return nil
}
