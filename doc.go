// Package berth answers questions about shipping containers at the PNCT
// terminal. A capability dispatched by an upstream reasoning component runs a
// durable acquisition pipeline (cache probe, session acquire, search,
// extract, validate, persist) for one container and operation, and the
// sanitizer turns free-form model output into a strict container record.
//
// Berth is a library first. The root package holds the shared sentinel
// errors and configuration; subsystems live in their own packages and the
// engine package wires them together.
//
// # Quick Start
//
//	cfg := berth.DefaultConfig()
//	eng, err := engine.Build(ctx, cfg)
//	if err != nil { ... }
//	defer eng.Close(ctx)
//
//	res, err := eng.Execute(ctx, "get_container_location",
//	    map[string]string{"container_id": "ABCD1234567"})
//
// # Architecture
//
// Each subsystem (container, pipeline, query) defines its own store
// interface. A single backend (memory, postgres, sqlite, mongo or redis)
// implements all of them. Workflow ids are prefix-qualified, K-sortable
// UUIDv7 identifiers.
package berth
