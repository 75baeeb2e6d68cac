package api

import (
	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/capability"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// StreamEvent is one line of the query stream. Exactly one field is set.
type StreamEvent struct {
	Progress *agent.Progress `json:"progress,omitempty"`
	Answer   *agent.Answer   `json:"answer,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// CapabilitiesResponse lists the capability catalogue.
type CapabilitiesResponse struct {
	Capabilities []capability.CatalogueEntry `json:"capabilities"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func defaultLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
