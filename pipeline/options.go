package pipeline

import (
	"context"
	"log/slog"
	"time"

	mw "github.com/xraph/berth/middleware"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEmitter sets the lifecycle event sink.
func WithEmitter(e Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithMiddleware appends attempt middleware. They run outside the built-in
// recover and timeout handlers, in the order given.
func WithMiddleware(mws ...mw.Middleware) Option {
	return func(o *Orchestrator) { o.middleware = append(o.middleware, mws...) }
}

// WithPolicies replaces all step policies.
func WithPolicies(p Policies) Option {
	return func(o *Orchestrator) {
		o.policies = make(Policies, len(p))
		for k, v := range p {
			o.policies[k] = v
		}
	}
}

// WithPolicy overrides the policy of one step.
func WithPolicy(step Step, p Policy) Option {
	return func(o *Orchestrator) { o.policies[step] = p }
}

// WithClock sets the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep replaces the backoff sleep. The function must return early
// with ctx.Err() when ctx is done.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}
