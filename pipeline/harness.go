package pipeline

import (
	"context"
	"log/slog"
	"time"

	mw "github.com/xraph/berth/middleware"
)

// Executor performs one step. It reads the context view it is given and
// returns only the output field its step owns. Returning a *StepError
// selects the failure kind; any other error is a retryable failure.
type Executor interface {
	Execute(ctx context.Context, sc StepContext) (Output, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, sc StepContext) (Output, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, sc StepContext) (Output, error) {
	return f(ctx, sc)
}

// Table maps every step to its executor.
type Table map[Step]Executor

// StepResult is the outcome of one step: Output when Err is nil.
type StepResult struct {
	Output Output
	Err    *StepError
	Report StepReport
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == nil }

// runStep executes step under its policy. It never mutates sc; callers
// apply the output.
func (o *Orchestrator) runStep(ctx context.Context, run *Run, sc *StepContext, step Step) StepResult {
	exec := o.table[step]
	pol := o.policies.get(step)
	budget := pol.attempts(step)
	start := time.Now()

	var last *StepError
	for attempt := 1; attempt <= budget; attempt++ {
		info := &mw.StepInfo{
			WorkflowID:  run.WorkflowID.String(),
			ContainerID: run.ContainerID,
			Operation:   run.Operation.String(),
			Step:        step.String(),
			Attempt:     attempt,
			Timeout:     pol.Timeout,
		}

		view := sc.view()
		var out Output
		err := o.chain(ctx, info, func(ctx context.Context) error {
			var execErr error
			out, execErr = exec.Execute(ctx, view)
			return execErr
		})
		if err == nil {
			elapsed := time.Since(start)
			o.emitter.EmitStepCompleted(ctx, run, step, elapsed)
			return StepResult{
				Output: out,
				Report: StepReport{Step: step, Attempts: attempt, Elapsed: elapsed},
			}
		}

		last = classify(ctx, step, attempt, err)
		if !last.Retryable() || attempt == budget || ctx.Err() != nil {
			break
		}

		delay := pol.Delay(attempt)
		o.logger.Warn("step attempt failed, retrying",
			slog.String("workflow_id", info.WorkflowID),
			slog.String("step", info.Step),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("kind", string(last.Kind)),
			slog.String("error", last.Message),
		)
		o.emitter.EmitStepRetrying(ctx, run, step, attempt, delay, last)

		if err := o.sleep(ctx, delay); err != nil {
			last = classify(ctx, step, attempt, err)
			break
		}
	}

	elapsed := time.Since(start)
	o.emitter.EmitStepFailed(ctx, run, step, last)
	return StepResult{
		Err: last,
		Report: StepReport{
			Step:     step,
			Attempts: last.Attempts,
			Elapsed:  elapsed,
			Error:    last.Message,
			Kind:     last.Kind,
		},
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
