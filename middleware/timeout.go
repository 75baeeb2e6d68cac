package middleware

import (
	"context"
)

// Timeout returns middleware that enforces the attempt deadline. A zero
// Timeout leaves the context untouched. When the deadline passes the
// context is cancelled and the executor should return
// context.DeadlineExceeded.
func Timeout() Middleware {
	return func(ctx context.Context, s *StepInfo, next Handler) error {
		if s.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, s.Timeout)
		defer cancel()
		return next(ctx)
	}
}
