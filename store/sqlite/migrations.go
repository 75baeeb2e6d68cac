package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/berth"
)

// migration is one schema change, applied once and recorded by version.
type migration struct {
	Version    string
	Name       string
	Statements []string
}

// migrations are applied in order.
var migrations = []migration{
	{
		Version: "20241101000001",
		Name:    "create_raw_documents",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS berth_raw_documents (
				container_id   TEXT PRIMARY KEY,
				operation      TEXT NOT NULL DEFAULT '',
				raw_document   TEXT NOT NULL,
				parsed_json    TEXT,
				status         TEXT NOT NULL DEFAULT 'success',
				error_message  TEXT NOT NULL DEFAULT '',
				scraped_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			)`,
		},
	},
	{
		Version: "20241101000002",
		Name:    "create_container_records",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS berth_container_records (
				container_id  TEXT PRIMARY KEY,
				operation     TEXT NOT NULL DEFAULT '',
				workflow_id   TEXT NOT NULL DEFAULT '',
				data          TEXT NOT NULL,
				source        TEXT NOT NULL DEFAULT 'PNCT',
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			)`,
		},
	},
	{
		Version: "20241101000003",
		Name:    "create_runs",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS berth_runs (
				workflow_id     TEXT PRIMARY KEY,
				container_id    TEXT NOT NULL,
				operation       TEXT NOT NULL,
				correlation_id  TEXT NOT NULL DEFAULT '',
				state           TEXT NOT NULL,
				cache_hit       INTEGER NOT NULL DEFAULT 0,
				error           TEXT NOT NULL DEFAULT '',
				error_kind      TEXT NOT NULL DEFAULT '',
				persist_error   TEXT NOT NULL DEFAULT '',
				steps           TEXT NOT NULL DEFAULT '[]',
				started_at      TEXT NOT NULL,
				completed_at    TEXT
			)`, `
			CREATE INDEX IF NOT EXISTS idx_berth_runs_container
				ON berth_runs (container_id, started_at DESC)`,
		},
	},
	{
		Version: "20241101000004",
		Name:    "create_query_logs",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS berth_query_logs (
				id                   TEXT PRIMARY KEY,
				user_query           TEXT NOT NULL,
				extracted_container  TEXT NOT NULL DEFAULT '',
				intent               TEXT NOT NULL DEFAULT '',
				response_time_ms     INTEGER NOT NULL DEFAULT 0,
				status               TEXT NOT NULL,
				error_message        TEXT NOT NULL DEFAULT '',
				workflow_id          TEXT NOT NULL DEFAULT '',
				cached               INTEGER NOT NULL DEFAULT 0,
				query_result         TEXT,
				created_at           TEXT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_berth_query_logs_container
				ON berth_query_logs (extracted_container, created_at DESC)`,
		},
	},
}

// Migrate applies every pending migration inside its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS berth_migrations (
			version     TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			applied_at  TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("berth/sqlite: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM berth_migrations WHERE version = ?`, m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("berth/sqlite: check migration %s: %w", m.Name, err)
		}
		if applied > 0 {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("berth/sqlite: %w: %s: %w", berth.ErrMigrationFailed, m.Name, err)
		}
		s.logger.Info("applied migration", "version", m.Version, "name", m.Name)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO berth_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, formatTime(timeNow()),
	); err != nil {
		return err
	}
	return tx.Commit()
}
