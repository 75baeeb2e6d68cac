// Package session defines the boundary to the page-automation layer that
// fetches raw terminal documents.
//
// A Provider opens independent sessions. Each Session fetches documents for
// container ids and is closed once the search step is done with it.
// Implementations live in sub-packages: session/rod drives a real browser,
// session/fixture serves canned pages.
package session

import (
	"context"

	"github.com/xraph/berth/id"
)

// Session is one isolated interaction context, such as a browser page.
type Session interface {
	// ID returns the session identifier used in logs.
	ID() id.SessionID

	// Search fetches the raw results document for a normalized container id.
	Search(ctx context.Context, containerID string) (string, error)

	// Close releases the session. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Provider opens sessions.
type Provider interface {
	// Open returns a fresh session. Every call yields an independent one.
	Open(ctx context.Context) (Session, error)

	// Close releases provider-wide resources such as a browser process.
	Close() error
}
