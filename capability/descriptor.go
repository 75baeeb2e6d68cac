package capability

import (
	"context"
	"slices"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
)

// Param declares one capability parameter.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Invocation carries the per-call inputs of a capability.
type Invocation struct {
	WorkflowID    id.WorkflowID
	ContainerID   string
	CorrelationID string
}

// Handler runs a capability to its terminal pipeline result.
type Handler func(ctx context.Context, inv Invocation) *pipeline.Result

// Descriptor is a registered capability.
type Descriptor struct {
	Name        string
	Description string
	Operation   container.Operation
	Params      []Param
	Handler     Handler
}

// Required returns the names of required parameters in declaration order.
func (d Descriptor) Required() []string {
	var names []string
	for _, p := range d.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Metadata returns the descriptor without its handler.
func (d Descriptor) Metadata() Metadata {
	return Metadata{
		Name:        d.Name,
		Description: d.Description,
		Operation:   d.Operation,
		Params:      slices.Clone(d.Params),
	}
}

// sameAs reports whether d and o describe the same capability. Handlers
// are functions and cannot be compared.
func (d Descriptor) sameAs(o Descriptor) bool {
	return d.Name == o.Name &&
		d.Description == o.Description &&
		d.Operation == o.Operation &&
		slices.Equal(d.Params, o.Params)
}

// Metadata is the machine-readable description of a capability.
type Metadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Operation   container.Operation `json:"operation"`
	Params      []Param             `json:"parameters"`
}

// CatalogueEntry is the export shape consumed by the reasoning component.
type CatalogueEntry struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}
