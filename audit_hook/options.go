package audithook

import (
	"log/slog"

	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// Option configures an Extension.
type Option func(*Extension)

// WithRecorder sets the audit event backend.
func WithRecorder(r Recorder) Option {
	return func(e *Extension) { e.recorder = r }
}

// WithRunStore persists a run record for every pipeline run.
func WithRunStore(s pipeline.RunStore) Option {
	return func(e *Extension) { e.runs = s }
}

// WithQueryLogs appends every answered query to s.
func WithQueryLogs(s query.LogStore) Option {
	return func(e *Extension) { e.logs = s }
}

// WithActions restricts the extension to emit only the listed actions.
// By default every action is enabled. Unknown actions are silently ignored.
//
// Example:
//
//	audithook.New(
//	    audithook.WithRecorder(rec),
//	    audithook.WithActions(
//	        audithook.ActionRunCompleted,
//	        audithook.ActionRunFailed,
//	    ),
//	)
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
