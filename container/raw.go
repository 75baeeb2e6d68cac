package container

import (
	"encoding/json"
	"time"
)

// RawStatus is the outcome recorded alongside a raw document.
type RawStatus string

const (
	RawSuccess RawStatus = "success"
	RawFailed  RawStatus = "failed"
)

// RawDocument is a fetched source page kept for cache probes. There is at
// most one per container id; writes are upserts.
type RawDocument struct {
	ContainerID  string          `json:"container_id"`
	Operation    Operation       `json:"operation"`
	Content      string          `json:"raw_document"`
	ParsedJSON   json.RawMessage `json:"parsed_json,omitempty"`
	Status       RawStatus       `json:"status"`
	ErrorMessage string          `json:"error_message"`
	ScrapedAt    time.Time       `json:"scraped_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Stale reports whether the document is older than maxAge at now.
// A non-positive maxAge never goes stale.
func (d *RawDocument) Stale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(d.ScrapedAt) > maxAge
}
