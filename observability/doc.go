// Package observability provides an OpenTelemetry metrics extension for
// berth. MetricsExtension implements lifecycle hooks to record
// system-wide counters for pipeline runs, step retries and failures, and
// answered queries.
//
// For per-attempt tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
