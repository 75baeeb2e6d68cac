package ext

import (
	"context"
	"time"

	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Pipeline lifecycle hooks
// ──────────────────────────────────────────────────

// RunStarted is called when a pipeline run begins.
type RunStarted interface {
	OnRunStarted(ctx context.Context, r *pipeline.Run) error
}

// StepCompleted is called after a step completes.
type StepCompleted interface {
	OnStepCompleted(ctx context.Context, r *pipeline.Run, step pipeline.Step, elapsed time.Duration) error
}

// StepRetrying is called when a step attempt fails and another attempt
// follows after delay.
type StepRetrying interface {
	OnStepRetrying(ctx context.Context, r *pipeline.Run, step pipeline.Step, attempt int, delay time.Duration, err error) error
}

// StepFailed is called when a step fails terminally.
type StepFailed interface {
	OnStepFailed(ctx context.Context, r *pipeline.Run, step pipeline.Step, err error) error
}

// RunCompleted is called after a run finishes successfully.
type RunCompleted interface {
	OnRunCompleted(ctx context.Context, r *pipeline.Run, elapsed time.Duration) error
}

// RunFailed is called when a run fails terminally.
type RunFailed interface {
	OnRunFailed(ctx context.Context, r *pipeline.Run, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// QueryAnswered is called after a natural-language query is answered,
// cached answers included.
type QueryAnswered interface {
	OnQueryAnswered(ctx context.Context, l *query.Log) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
