package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
)

const runColumns = `workflow_id, container_id, operation, correlation_id, state, cache_hit,
	error, error_kind, persist_error, steps, started_at, completed_at`

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, run *pipeline.Run) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("berth/sqlite: encode steps: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO berth_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.WorkflowID.String(), run.ContainerID, string(run.Operation), run.CorrelationID,
		string(run.State), run.CacheHit, run.Error, string(run.ErrorKind), run.PersistError,
		string(steps), formatTime(run.StartedAt), formatTimePtr(run.CompletedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("berth/sqlite: run %s already exists", run.WorkflowID)
		}
		return fmt.Errorf("berth/sqlite: create run: %w", err)
	}
	return nil
}

// UpdateRun replaces a stored run.
func (s *Store) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("berth/sqlite: encode steps: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE berth_runs SET
			state = ?, cache_hit = ?, error = ?, error_kind = ?,
			persist_error = ?, steps = ?, completed_at = ?
		WHERE workflow_id = ?`,
		string(run.State), run.CacheHit, run.Error, string(run.ErrorKind),
		run.PersistError, string(steps), formatTimePtr(run.CompletedAt),
		run.WorkflowID.String(),
	)
	if err != nil {
		return fmt.Errorf("berth/sqlite: update run: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // sqlite always reports rows
	if rows == 0 {
		return berth.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by workflow id.
func (s *Store) GetRun(ctx context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM berth_runs WHERE workflow_id = ?`,
		workflowID.String(),
	)
	run, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRunNotFound
		}
		return nil, fmt.Errorf("berth/sqlite: get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	q := `SELECT ` + runColumns + ` FROM berth_runs`
	var args []any
	if opts.ContainerID != "" {
		q += ` WHERE container_id = ?`
		args = append(args, opts.ContainerID)
	}
	q += ` ORDER BY started_at DESC`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("berth/sqlite: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*pipeline.Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("berth/sqlite: scan run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*pipeline.Run, error) {
	var (
		run                         pipeline.Run
		workflowID, op, state, kind string
		steps, startedAt            string
		completedAt                 sql.NullString
	)
	err := row.Scan(&workflowID, &run.ContainerID, &op, &run.CorrelationID, &state,
		&run.CacheHit, &run.Error, &kind, &run.PersistError, &steps,
		&startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if run.WorkflowID, err = id.ParseWorkflowID(workflowID); err != nil {
		return nil, fmt.Errorf("parse workflow id %q: %w", workflowID, err)
	}
	run.Operation = container.Operation(op)
	run.State = pipeline.RunState(state)
	run.ErrorKind = pipeline.ErrorKind(kind)
	if err := json.Unmarshal([]byte(steps), &run.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}
