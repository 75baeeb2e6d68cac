package dispatch

import (
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
)

// ToolResult is the caller-facing envelope of one dispatched call.
type ToolResult struct {
	Capability  string              `json:"capability"`
	Status      pipeline.Status     `json:"status"`
	WorkflowID  string              `json:"workflow_id"`
	ContainerID string              `json:"container_id"`
	Operation   container.Operation `json:"operation"`
	Data        *container.Data     `json:"data,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorKind   pipeline.ErrorKind  `json:"error_kind,omitempty"`
	CacheHit    bool                `json:"cache_hit"`
}

// OK reports whether the dispatched run succeeded.
func (r *ToolResult) OK() bool { return r != nil && r.Status == pipeline.StatusSuccess }

func wrap(name string, inv invocation, res *pipeline.Result) *ToolResult {
	if res == nil {
		return &ToolResult{
			Capability:  name,
			Status:      pipeline.StatusFailed,
			WorkflowID:  inv.workflowID,
			ContainerID: inv.containerID,
			Operation:   inv.operation,
			Error:       "capability returned no result",
			ErrorKind:   pipeline.KindFailure,
		}
	}
	return &ToolResult{
		Capability:  name,
		Status:      res.Status,
		WorkflowID:  inv.workflowID,
		ContainerID: res.ContainerID,
		Operation:   res.Operation,
		Data:        res.Data,
		Error:       res.Error,
		ErrorKind:   res.ErrorKind,
		CacheHit:    res.CacheHit,
	}
}
