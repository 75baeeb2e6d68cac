// Package audithook is a berth extension that keeps the audit trail of
// pipeline runs and answered queries.
//
// With a [pipeline.RunStore] it writes one [pipeline.Run] per run: created
// when the run starts and replaced when it completes or fails. With a
// [query.LogStore] it appends every answered query. With a [Recorder] it
// also emits a structured audit event for each lifecycle hook, with a
// severity (info for normal operations, warning for retries, critical for
// terminal failures) and metadata (container, operation, step, elapsed
// time, errors).
//
// # Usage
//
//	audithook.New(
//	    audithook.WithRunStore(st),
//	    audithook.WithQueryLogs(st),
//	    audithook.WithRecorder(audithook.LogRecorder(logger)),
//	)
//
// # Selective filtering
//
//	audithook.New(
//	    audithook.WithRecorder(rec),
//	    audithook.WithActions(
//	        audithook.ActionStepFailed,
//	        audithook.ActionRunFailed,
//	    ),
//	)
//
// Filtering applies to audit events only; run records and query logs are
// always written when a store is configured.
package audithook
