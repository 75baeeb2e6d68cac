package pipeline

import (
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the terminal outcome of a run.
type Result struct {
	Status      Status              `json:"status"`
	WorkflowID  id.WorkflowID       `json:"workflow_id"`
	ContainerID string              `json:"container_id"`
	Operation   container.Operation `json:"operation"`
	Data        *container.Data     `json:"data,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorKind   ErrorKind           `json:"error_kind,omitempty"`
	CacheHit    bool                `json:"cache_hit"`
	Steps       []StepReport        `json:"steps,omitempty"`
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool { return r != nil && r.Status == StatusSuccess }
