// Package middleware provides composable middleware for pipeline step
// attempts.
//
// A [Middleware] wraps one attempt of one step. Middleware are composed
// with [Chain] and applied right-to-left: the first middleware in the slice
// is the outermost wrapper. The pipeline harness always appends [Recover]
// and [Timeout] innermost, so user middleware observes every attempt
// including timed-out and panicking ones.
//
//	// logging → tracing → metrics → recover → timeout → executor
//	pipeline.WithMiddleware(middleware.Logging(logger), middleware.Tracing(), middleware.Metrics())
//
// # Built-in Middleware
//
//   - [Logging] logs step, attempt, duration and outcome
//   - [Recover] converts panics to errors
//   - [Timeout] cancels the attempt context after the step's timeout
//   - [Tracing] wraps the attempt in an OpenTelemetry span
//   - [Metrics] records per-step duration and outcome counters
package middleware
