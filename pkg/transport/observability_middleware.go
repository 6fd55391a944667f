package transport

import (
	"context"
	"fmt"
	"sync/atomic"
)

// FrameRecorder receives per-frame counts from the observability middleware
type FrameRecorder interface {
	FrameReceived(size int)
	FrameSent(size int, err error)
}

// ObservabilityMiddleware counts frames and bytes in both directions and
// forwards each event to an optional recorder
type ObservabilityMiddleware struct {
	recorder FrameRecorder
	metrics  transportMetrics
}

// NewObservabilityMiddleware creates the middleware. recorder may be nil.
func NewObservabilityMiddleware(recorder FrameRecorder) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{recorder: recorder}
}

// Wrap implements Middleware
func (om *ObservabilityMiddleware) Wrap(c Channel) Channel {
	return &observabilityChannel{
		middlewareChannel: middlewareChannel{next: c},
		middleware:        om,
	}
}

// Snapshot returns the counters accumulated so far
func (om *ObservabilityMiddleware) Snapshot() TransportMetricsSnapshot {
	return TransportMetricsSnapshot{
		FramesReceived: om.metrics.framesReceived.Load(),
		BytesReceived:  om.metrics.bytesReceived.Load(),
		FramesSent:     om.metrics.framesSent.Load(),
		BytesSent:      om.metrics.bytesSent.Load(),
		SendErrors:     om.metrics.sendErrors.Load(),
	}
}

type observabilityChannel struct {
	middlewareChannel
	middleware *ObservabilityMiddleware
}

func (oc *observabilityChannel) Serve(ctx context.Context, handle FrameHandler) error {
	return oc.next.Serve(ctx, func(ctx context.Context, frame []byte) {
		oc.middleware.metrics.framesReceived.Add(1)
		oc.middleware.metrics.bytesReceived.Add(int64(len(frame)))
		if oc.middleware.recorder != nil {
			oc.middleware.recorder.FrameReceived(len(frame))
		}
		handle(ctx, frame)
	})
}

func (oc *observabilityChannel) Send(data []byte) error {
	err := oc.next.Send(data)
	if err != nil {
		oc.middleware.metrics.sendErrors.Add(1)
	} else {
		oc.middleware.metrics.framesSent.Add(1)
		oc.middleware.metrics.bytesSent.Add(int64(len(data)))
	}
	if oc.middleware.recorder != nil {
		oc.middleware.recorder.FrameSent(len(data), err)
	}
	return err
}

type transportMetrics struct {
	framesReceived atomic.Int64
	bytesReceived  atomic.Int64
	framesSent     atomic.Int64
	bytesSent      atomic.Int64
	sendErrors     atomic.Int64
}

// TransportMetricsSnapshot is a point-in-time copy of the channel counters
type TransportMetricsSnapshot struct {
	FramesReceived int64
	BytesReceived  int64
	FramesSent     int64
	BytesSent      int64
	SendErrors     int64
}

// String returns a one-line summary
func (s TransportMetricsSnapshot) String() string {
	return fmt.Sprintf("received %d frames (%d bytes), sent %d frames (%d bytes), %d send errors",
		s.FramesReceived, s.BytesReceived, s.FramesSent, s.BytesSent, s.SendErrors)
}
