package agent

import (
	"context"

	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/query"
)

// Plan is the reasoner's decision for one query.
type Plan struct {
	// ContainerID is normalized. Empty means the query named no container.
	ContainerID string
	Intent      query.Intent
	// Capability is the capability to dispatch. Empty means the intent's
	// default capability.
	Capability string
	Confidence float64
}

// CapabilityName returns the capability to dispatch for p.
func (p Plan) CapabilityName() string {
	if p.Capability != "" {
		return p.Capability
	}
	return p.Intent.Capability()
}

// Composition is the input of the answer-composition step.
type Composition struct {
	Query  string
	Plan   Plan
	Result *dispatch.ToolResult
}

// Reasoner plans and phrases answers.
type Reasoner interface {
	// Plan chooses a capability from catalogue for q.
	Plan(ctx context.Context, q string, catalogue []capability.CatalogueEntry) (Plan, error)

	// Compose returns text holding a JSON container record for c. The text
	// is sanitized by the caller and may be noisy.
	Compose(ctx context.Context, c Composition) (string, error)
}
