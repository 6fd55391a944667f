package transport

import (
	"context"
)

// Middleware decorates a Channel
type Middleware interface {
	Wrap(Channel) Channel
}

// MiddlewareFunc adapts a function to Middleware
type MiddlewareFunc func(Channel) Channel

// Wrap implements Middleware
func (f MiddlewareFunc) Wrap(c Channel) Channel {
	return f(c)
}

// ChainMiddleware composes middleware so that the first one listed is the
// outermost
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(c Channel) Channel {
		for i := len(middleware) - 1; i >= 0; i-- {
			c = middleware[i].Wrap(c)
		}
		return c
	})
}

// middlewareChannel forwards every call to next; decorators embed it and
// override what they need
type middlewareChannel struct {
	next Channel
}

func (m *middlewareChannel) Serve(ctx context.Context, handle FrameHandler) error {
	return m.next.Serve(ctx, handle)
}

func (m *middlewareChannel) Send(data []byte) error {
	return m.next.Send(data)
}

func (m *middlewareChannel) Close() error {
	return m.next.Close()
}
