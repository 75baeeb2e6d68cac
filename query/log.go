package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xraph/berth/id"
)

// Status values recorded in a Log.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// Log is one answered (or rejected) query.
type Log struct {
	ID                 id.QueryID      `json:"id"`
	UserQuery          string          `json:"user_query"`
	ExtractedContainer string          `json:"extracted_container,omitempty"`
	Intent             Intent          `json:"intent,omitempty"`
	ResponseTimeMS     int64           `json:"response_time_ms"`
	Status             string          `json:"status"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	WorkflowID         string          `json:"workflow_id,omitempty"`
	Cached             bool            `json:"cached"`
	Result             json.RawMessage `json:"query_result,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// LogOpts controls query log listing.
type LogOpts struct {
	// ContainerID filters by extracted container. Empty means all.
	ContainerID string
	// Limit is the maximum number of logs to return. Zero means no limit.
	Limit int
}

// LogStore persists query logs.
type LogStore interface {
	// AppendQueryLog stores a new log entry.
	AppendQueryLog(ctx context.Context, l *Log) error

	// ListQueryLogs returns logs newest first.
	ListQueryLogs(ctx context.Context, opts LogOpts) ([]*Log, error)
}
