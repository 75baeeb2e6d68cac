// Package pipeline runs the fixed acquisition sequence for one
// (container id, operation) pair.
//
// A run walks the steps in order:
//
//	cache_probe -> session_acquire -> search -> persist_raw -> extract -> validate -> persist
//
// A cache hit jumps from cache_probe straight to extract, skipping
// session_acquire, search and persist_raw. Each step is executed by an
// Executor registered in a Table under its Step value. Steps run strictly
// one after another and enrich a StepContext that is append-only: a step
// may only fill its own output field and never overwrites one that is set.
//
// Every attempt runs through a middleware chain ending in recover and
// timeout handlers. Retryable failures (failure, timeout) are retried under
// the step's backoff policy until its attempts are spent. Schema and
// mismatch errors from validation terminate the run immediately.
//
// cache_probe, persist_raw and persist are best-effort: they get one attempt
// bounded by their timeout and their failures are logged without touching
// the result status. persist_raw runs off the critical path in its own
// goroutine; call Orchestrator.Wait to drain pending writes.
//
// Run results are plain values. Orchestrator.Run never returns an error and
// never panics: a step that exhausts its budget yields a Result with status
// failed carrying the last error message.
package pipeline
