package pipeline

import (
	"context"
	"time"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// RunState represents the lifecycle state of a pipeline run.
type RunState string

const (
	// RunStateRunning means the pipeline is executing.
	RunStateRunning RunState = "running"
	// RunStateCompleted means the pipeline returned success.
	RunStateCompleted RunState = "completed"
	// RunStateFailed means a required step failed terminally.
	RunStateFailed RunState = "failed"
)

// StepReport records how one step went.
type StepReport struct {
	Step     Step          `json:"step"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
	Kind     ErrorKind     `json:"kind,omitempty"`

	// Skipped is set for steps bypassed by a cache hit.
	Skipped bool `json:"skipped,omitempty"`

	// Detached is set for steps handed off to a background goroutine.
	// Their outcome is only logged and emitted.
	Detached bool `json:"detached,omitempty"`
}

// Run is the audit record of one pipeline execution.
type Run struct {
	WorkflowID    id.WorkflowID       `json:"workflow_id"`
	ContainerID   string              `json:"container_id"`
	Operation     container.Operation `json:"operation"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	State         RunState            `json:"state"`
	CacheHit      bool                `json:"cache_hit"`
	Error         string              `json:"error,omitempty"`
	ErrorKind     ErrorKind           `json:"error_kind,omitempty"`

	// PersistError holds the best-effort persist failure, if any. It never
	// changes State.
	PersistError string `json:"persist_error,omitempty"`

	Steps       []StepReport `json:"steps"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Clone returns a copy of r whose slices are not shared.
func (r *Run) Clone() *Run {
	c := *r
	c.Steps = append([]StepReport(nil), r.Steps...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ListOpts controls run list queries.
type ListOpts struct {
	// ContainerID filters by container. Empty means all containers.
	ContainerID string
	// Limit is the maximum number of runs to return. Zero means no limit.
	Limit int
}

// RunStore persists run audit records.
type RunStore interface {
	// CreateRun persists a new run.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun replaces a stored run.
	UpdateRun(ctx context.Context, run *Run) error

	// GetRun returns berth.ErrRunNotFound when absent.
	GetRun(ctx context.Context, workflowID id.WorkflowID) (*Run, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)
}
