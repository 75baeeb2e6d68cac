package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/berth/ext"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Extension)(nil)
	_ ext.RunStarted    = (*Extension)(nil)
	_ ext.StepCompleted = (*Extension)(nil)
	_ ext.StepRetrying  = (*Extension)(nil)
	_ ext.StepFailed    = (*Extension)(nil)
	_ ext.RunCompleted  = (*Extension)(nil)
	_ ext.RunFailed     = (*Extension)(nil)
	_ ext.QueryAnswered = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one structured audit event.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder returns a Recorder that writes events to logger. Critical
// events are logged at error level, warnings at warn, the rest at debug.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelDebug
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges lifecycle events to run records, query logs and an
// audit event backend. Every part is optional.
type Extension struct {
	recorder Recorder
	runs     pipeline.RunStore
	logs     query.LogStore
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an audit Extension.
func New(opts ...Option) *Extension {
	e := &Extension{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Pipeline lifecycle hooks ────────────────────────

// OnRunStarted implements ext.RunStarted.
func (e *Extension) OnRunStarted(ctx context.Context, r *pipeline.Run) error {
	if e.runs != nil {
		if err := e.runs.CreateRun(ctx, r.Clone()); err != nil {
			return fmt.Errorf("audit_hook: create run %s: %w", r.WorkflowID, err)
		}
	}
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.WorkflowID.String(), CategoryRun, nil,
		"container_id", r.ContainerID,
		"operation", r.Operation.String(),
	)
}

// OnStepCompleted implements ext.StepCompleted.
func (e *Extension) OnStepCompleted(ctx context.Context, r *pipeline.Run, step pipeline.Step, elapsed time.Duration) error {
	return e.record(ctx, ActionStepCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.WorkflowID.String(), CategoryRun, nil,
		"container_id", r.ContainerID,
		"step", step.String(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnStepRetrying implements ext.StepRetrying.
func (e *Extension) OnStepRetrying(ctx context.Context, r *pipeline.Run, step pipeline.Step, attempt int, delay time.Duration, stepErr error) error {
	return e.record(ctx, ActionStepRetrying, SeverityWarning, OutcomeFailure,
		ResourceRun, r.WorkflowID.String(), CategoryRun, stepErr,
		"container_id", r.ContainerID,
		"step", step.String(),
		"attempt", attempt,
		"delay_ms", delay.Milliseconds(),
	)
}

// OnStepFailed implements ext.StepFailed.
func (e *Extension) OnStepFailed(ctx context.Context, r *pipeline.Run, step pipeline.Step, stepErr error) error {
	severity := SeverityWarning
	if !step.BestEffort() {
		severity = SeverityCritical
	}
	return e.record(ctx, ActionStepFailed, severity, OutcomeFailure,
		ResourceRun, r.WorkflowID.String(), CategoryRun, stepErr,
		"container_id", r.ContainerID,
		"step", step.String(),
	)
}

// OnRunCompleted implements ext.RunCompleted.
func (e *Extension) OnRunCompleted(ctx context.Context, r *pipeline.Run, elapsed time.Duration) error {
	if err := e.update(ctx, r); err != nil {
		return err
	}
	return e.record(ctx, ActionRunCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.WorkflowID.String(), CategoryRun, nil,
		"container_id", r.ContainerID,
		"operation", r.Operation.String(),
		"cache_hit", r.CacheHit,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRunFailed implements ext.RunFailed.
func (e *Extension) OnRunFailed(ctx context.Context, r *pipeline.Run, runErr error) error {
	if err := e.update(ctx, r); err != nil {
		return err
	}
	return e.record(ctx, ActionRunFailed, SeverityCritical, OutcomeFailure,
		ResourceRun, r.WorkflowID.String(), CategoryRun, runErr,
		"container_id", r.ContainerID,
		"operation", r.Operation.String(),
		"error_kind", string(r.ErrorKind),
	)
}

// ── Query hooks ─────────────────────────────────────

// OnQueryAnswered implements ext.QueryAnswered.
func (e *Extension) OnQueryAnswered(ctx context.Context, l *query.Log) error {
	if e.logs != nil {
		if err := e.logs.AppendQueryLog(ctx, l); err != nil {
			return fmt.Errorf("audit_hook: append query log: %w", err)
		}
	}

	outcome, severity := OutcomeSuccess, SeverityInfo
	if l.Status == query.StatusFailed {
		outcome, severity = OutcomeFailure, SeverityWarning
	}
	var qErr error
	if l.ErrorMessage != "" {
		qErr = fmt.Errorf("%s", l.ErrorMessage)
	}
	return e.record(ctx, ActionQueryAnswered, severity, outcome,
		ResourceQuery, l.ID.String(), CategoryQuery, qErr,
		"container_id", l.ExtractedContainer,
		"intent", l.Intent.String(),
		"cached", l.Cached,
		"response_time_ms", l.ResponseTimeMS,
	)
}

// ── Internal helpers ────────────────────────────────

func (e *Extension) update(ctx context.Context, r *pipeline.Run) error {
	if e.runs == nil {
		return nil
	}
	if err := e.runs.UpdateRun(ctx, r.Clone()); err != nil {
		return fmt.Errorf("audit_hook: update run %s: %w", r.WorkflowID, err)
	}
	return nil
}

// record builds and sends an audit event if a recorder is set and the
// action is enabled. The kvPairs argument is a list of key-value pairs
// added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.recorder == nil {
		return nil
	}
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
