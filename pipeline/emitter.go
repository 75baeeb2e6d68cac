package pipeline

import (
	"context"
	"time"
)

// Emitter receives run lifecycle events. *ext.Registry satisfies it.
type Emitter interface {
	EmitRunStarted(ctx context.Context, run *Run)
	EmitStepCompleted(ctx context.Context, run *Run, step Step, elapsed time.Duration)
	EmitStepRetrying(ctx context.Context, run *Run, step Step, attempt int, delay time.Duration, err error)
	EmitStepFailed(ctx context.Context, run *Run, step Step, err error)
	EmitRunCompleted(ctx context.Context, run *Run, elapsed time.Duration)
	EmitRunFailed(ctx context.Context, run *Run, err error)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) EmitRunStarted(context.Context, *Run)                                    {}
func (NopEmitter) EmitStepCompleted(context.Context, *Run, Step, time.Duration)            {}
func (NopEmitter) EmitStepRetrying(context.Context, *Run, Step, int, time.Duration, error) {}
func (NopEmitter) EmitStepFailed(context.Context, *Run, Step, error)                       {}
func (NopEmitter) EmitRunCompleted(context.Context, *Run, time.Duration)                   {}
func (NopEmitter) EmitRunFailed(context.Context, *Run, error)                              {}
