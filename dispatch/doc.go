// Package dispatch bridges a reasoning component's chosen capability and
// parameters to a pipeline run.
//
// Execute resolves the capability, checks required parameters, normalizes
// the container id, mints a workflow id and returns the run's terminal
// result as a [ToolResult]. Dispatch-time failures are returned as errors
// and never start a pipeline:
//
//   - [capability.NotFoundError] for an unknown capability
//   - [MissingParameterError] for the first absent required parameter
//   - [container.ValidationError] for a malformed container id
//
// Pipeline failures are not errors; they come back as a ToolResult with
// status "failed".
package dispatch
