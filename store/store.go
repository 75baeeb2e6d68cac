package store

import (
	"context"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, sqlite, mongo, redis, memory) implements all
// of them.
type Store interface {
	container.RawStore
	container.RecordStore
	pipeline.RunStore
	query.LogStore

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
