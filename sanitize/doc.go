// Package sanitize turns free-text model output into a strict
// container.Record.
//
// The input is expected to hold one JSON object, possibly wrapped in a
// fenced code block or surrounded by commentary. Sanitize never fails: any
// decode or schema problem becomes a record with HasErrors set, and the
// returned record always carries a non-empty Message.
package sanitize
