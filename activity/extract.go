package activity

import (
	"context"
	"errors"
	"strings"

	"github.com/xraph/berth/extract"
	"github.com/xraph/berth/pipeline"
)

// Extract projects the raw document's results row onto the fields of the
// run's operation.
type Extract struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *Extract) Execute(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	if sc.Raw == nil {
		return pipeline.Output{}, pipeline.Schema("no raw document to extract from")
	}
	row, err := extract.ParseTable(sc.Raw.Content)
	if errors.Is(err, extract.ErrEmptyDocument) {
		return pipeline.Output{}, pipeline.Schema("raw document is empty")
	}
	if err != nil {
		return pipeline.Output{}, err
	}
	return pipeline.Output{Fields: extract.Project(row, sc.Operation, e.deps.now())}, nil
}

// Validate checks that the extracted fields are complete and describe the
// requested container.
type Validate struct{}

// Execute implements pipeline.Executor.
func (Validate) Execute(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	f := sc.Fields
	if f == nil {
		return pipeline.Output{}, pipeline.Schema("no extracted fields")
	}

	var missing []string
	if f.ContainerNumber == "" {
		missing = append(missing, "container_number")
	}
	if f.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return pipeline.Output{}, pipeline.Schema("missing required fields: %s", strings.Join(missing, ", "))
	}

	if f.ContainerNumber != sc.ContainerID {
		return pipeline.Output{}, pipeline.Mismatch("extracted container %s does not match requested %s",
			f.ContainerNumber, sc.ContainerID)
	}
	return pipeline.Output{Record: f}, nil
}
