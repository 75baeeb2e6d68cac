package middleware

import (
	"context"
	"time"
)

// Handler is the terminal function that executes one step attempt.
type Handler func(ctx context.Context) error

// StepInfo describes the attempt being executed.
type StepInfo struct {
	WorkflowID  string
	ContainerID string
	Operation   string
	Step        string
	Attempt     int
	Timeout     time.Duration
}

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the attempt description, and the next handler to call.
// Middleware MUST call next to continue the chain (unless short-circuiting
// on error).
type Middleware func(ctx context.Context, s *StepInfo, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, s *StepInfo, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, s, prev)
			}
		}
		return h(ctx)
	}
}
