package capability

import (
	"context"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
)

// Capability names exposed to the reasoning component.
const (
	GetContainerInfo           = "get_container_info"
	CheckContainerAvailability = "check_container_availability"
	GetContainerLocation       = "get_container_location"
	CheckContainerHolds        = "check_container_holds"
	GetLastFreeDay             = "get_last_free_day"
)

// ParamContainerID is the parameter every built-in capability requires.
const ParamContainerID = "container_id"

// Runner executes a pipeline run. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Result
}

var builtinTable = []struct {
	name        string
	description string
	op          container.Operation
}{
	{GetContainerInfo, "Retrieve complete container information from PNCT", container.OpFullInfo},
	{CheckContainerAvailability, "Check if container is available for pickup", container.OpAvailability},
	{GetContainerLocation, "Get container yard location", container.OpLocation},
	{CheckContainerHolds, "Check for holds or restrictions on container", container.OpHolds},
	{GetLastFreeDay, "Get last free day for container", container.OpLastFreeDay},
}

// Builtins returns the built-in capabilities in registration order, each
// running its operation through runner.
func Builtins(runner Runner) []Descriptor {
	out := make([]Descriptor, 0, len(builtinTable))
	for _, b := range builtinTable {
		out = append(out, Descriptor{
			Name:        b.name,
			Description: b.description,
			Operation:   b.op,
			Params: []Param{{
				Name:        ParamContainerID,
				Description: "Container number (4 letters + 7 digits)",
				Required:    true,
			}},
			Handler: RunOperation(runner, b.op),
		})
	}
	return out
}

// RunOperation returns a Handler that runs op through runner.
func RunOperation(runner Runner, op container.Operation) Handler {
	return func(ctx context.Context, inv Invocation) *pipeline.Result {
		return runner.Run(ctx, pipeline.Request{
			WorkflowID:    inv.WorkflowID,
			ContainerID:   inv.ContainerID,
			Operation:     op,
			CorrelationID: inv.CorrelationID,
		})
	}
}

// RegisterBuiltins registers Builtins(runner) into r.
func RegisterBuiltins(r *Registry, runner Runner) error {
	for _, d := range Builtins(runner) {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// CapabilityFor returns the capability name that runs op.
func CapabilityFor(op container.Operation) (string, bool) {
	for _, b := range builtinTable {
		if b.op == op {
			return b.name, true
		}
	}
	return "", false
}
