package container

import (
	"time"

	"github.com/xraph/berth/id"
)

// Snapshot is the durable, validated record of a container, written by the
// persist step and keyed by container id.
type Snapshot struct {
	ContainerID string        `json:"container_id"`
	Operation   Operation     `json:"operation"`
	WorkflowID  id.WorkflowID `json:"workflow_id"`
	Data        *Data         `json:"data"`
	Source      string        `json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
