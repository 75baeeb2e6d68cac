package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a step failure.
type ErrorKind string

const (
	// KindFailure is a generic, retryable step failure.
	KindFailure ErrorKind = "failure"
	// KindTimeout means the attempt exceeded its step timeout. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindSchema means required fields were absent. Terminal.
	KindSchema ErrorKind = "schema"
	// KindMismatch means the extracted container number differs from the
	// requested one. Terminal.
	KindMismatch ErrorKind = "mismatch"
)

// StepError is the failure outcome of a step.
type StepError struct {
	Step     Step
	Kind     ErrorKind
	Message  string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	if e.Step.Valid() {
		return fmt.Sprintf("%s %s: %s", e.Step, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StepError) Unwrap() error { return e.Err }

// Retryable reports whether the harness may try the step again.
func (e *StepError) Retryable() bool {
	return e.Kind == KindFailure || e.Kind == KindTimeout
}

// Schema returns a terminal error for missing required fields.
func Schema(format string, args ...any) *StepError {
	return &StepError{Kind: KindSchema, Message: fmt.Sprintf(format, args...)}
}

// Mismatch returns a terminal error for an identity mismatch.
func Mismatch(format string, args ...any) *StepError {
	return &StepError{Kind: KindMismatch, Message: fmt.Sprintf(format, args...)}
}

// Fail wraps err as a retryable failure.
func Fail(err error) *StepError {
	return &StepError{Kind: KindFailure, Message: err.Error(), Err: err}
}

// classify turns whatever an attempt returned into a StepError. parent is
// the run context: a deadline that fired while it is still alive came from
// the step timeout.
func classify(parent context.Context, step Step, attempt int, err error) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		out := *se
		out.Step = step
		out.Attempts = attempt
		if out.Message == "" && out.Err != nil {
			out.Message = out.Err.Error()
		}
		if out.Kind == "" {
			out.Kind = KindFailure
		}
		return &out
	}

	kind := KindFailure
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		kind = KindTimeout
	}
	return &StepError{
		Step:     step,
		Kind:     kind,
		Message:  err.Error(),
		Attempts: attempt,
		Err:      err,
	}
}
