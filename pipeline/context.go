package pipeline

import (
	"fmt"
	"slices"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/session"
)

// Request is the immutable input of one pipeline run.
type Request struct {
	WorkflowID    id.WorkflowID
	ContainerID   string
	Operation     container.Operation
	CorrelationID string
}

// StepContext is the state threaded through a run. The request fields are
// fixed at start; every other field is written once, by the step that owns
// it.
type StepContext struct {
	WorkflowID    id.WorkflowID
	ContainerID   string
	Operation     container.Operation
	CorrelationID string

	// Session is set by session_acquire.
	Session session.Session

	// Raw is set by cache_probe on a hit or by search on a miss.
	Raw *container.RawDocument

	// CacheHit reports whether Raw came from cache_probe.
	CacheHit bool

	// Fields is set by extract.
	Fields *container.Data

	// Record is set by validate. It is the data returned to the caller.
	Record *container.Data
}

// Output is what an executor hands back. Only the field owned by the
// executing step may be set.
type Output struct {
	Session session.Session
	Raw     *container.RawDocument
	Fields  *container.Data
	Record  *container.Data
}

func newStepContext(req Request) *StepContext {
	return &StepContext{
		WorkflowID:    req.WorkflowID,
		ContainerID:   req.ContainerID,
		Operation:     req.Operation,
		CorrelationID: req.CorrelationID,
	}
}

// view returns a copy executors can read without reaching into the run's
// own documents.
func (sc *StepContext) view() StepContext {
	v := *sc
	if sc.Raw != nil {
		raw := *sc.Raw
		raw.ParsedJSON = slices.Clone(sc.Raw.ParsedJSON)
		v.Raw = &raw
	}
	v.Fields = sc.Fields.Clone()
	v.Record = sc.Record.Clone()
	return v
}

// apply merges out into sc. It rejects writes to fields the step does not
// own and writes to fields that are already set, leaving sc untouched.
func (sc *StepContext) apply(step Step, out Output) error {
	owned := map[string]bool{}
	switch step {
	case StepCacheProbe, StepSearch:
		owned["raw"] = true
	case StepSessionAcquire:
		owned["session"] = true
	case StepExtract:
		owned["fields"] = true
	case StepValidate:
		owned["record"] = true
	}

	set := map[string]bool{
		"session": out.Session != nil,
		"raw":     out.Raw != nil,
		"fields":  out.Fields != nil,
		"record":  out.Record != nil,
	}
	present := map[string]bool{
		"session": sc.Session != nil,
		"raw":     sc.Raw != nil,
		"fields":  sc.Fields != nil,
		"record":  sc.Record != nil,
	}

	for _, field := range []string{"session", "raw", "fields", "record"} {
		if !set[field] {
			continue
		}
		if !owned[field] {
			return fmt.Errorf("pipeline: step %s may not set %s", step, field)
		}
		if present[field] {
			return fmt.Errorf("pipeline: step %s would overwrite %s", step, field)
		}
	}

	if out.Session != nil {
		sc.Session = out.Session
	}
	if out.Raw != nil {
		sc.Raw = out.Raw
		sc.CacheHit = step == StepCacheProbe
	}
	if out.Fields != nil {
		sc.Fields = out.Fields
	}
	if out.Record != nil {
		sc.Record = out.Record
	}
	return nil
}
