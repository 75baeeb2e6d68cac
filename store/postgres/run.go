package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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
		return fmt.Errorf("berth/postgres: encode steps: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO berth_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.WorkflowID.String(), run.ContainerID, string(run.Operation), run.CorrelationID,
		string(run.State), run.CacheHit, run.Error, string(run.ErrorKind), run.PersistError,
		steps, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("berth/postgres: run %s already exists", run.WorkflowID)
		}
		return fmt.Errorf("berth/postgres: create run: %w", err)
	}
	return nil
}

// UpdateRun replaces a stored run.
func (s *Store) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("berth/postgres: encode steps: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE berth_runs SET
			state = $2, cache_hit = $3, error = $4, error_kind = $5,
			persist_error = $6, steps = $7, completed_at = $8
		WHERE workflow_id = $1`,
		run.WorkflowID.String(), string(run.State), run.CacheHit, run.Error,
		string(run.ErrorKind), run.PersistError, steps, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("berth/postgres: update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return berth.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by workflow id.
func (s *Store) GetRun(ctx context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM berth_runs WHERE workflow_id = $1`,
		workflowID.String(),
	)
	run, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRunNotFound
		}
		return nil, fmt.Errorf("berth/postgres: get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	q := `SELECT ` + runColumns + ` FROM berth_runs`
	var args []any
	if opts.ContainerID != "" {
		args = append(args, opts.ContainerID)
		q += ` WHERE container_id = $1`
	}
	q += ` ORDER BY started_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("berth/postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*pipeline.Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("berth/postgres: scan run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*pipeline.Run, error) {
	var (
		run         pipeline.Run
		workflowID  string
		op          string
		state       string
		kind        string
		steps       []byte
		completedAt *time.Time
	)
	err := row.Scan(&workflowID, &run.ContainerID, &op, &run.CorrelationID, &state,
		&run.CacheHit, &run.Error, &kind, &run.PersistError, &steps,
		&run.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if run.WorkflowID, err = id.ParseWorkflowID(workflowID); err != nil {
		return nil, fmt.Errorf("parse workflow id %q: %w", workflowID, err)
	}
	run.Operation = container.Operation(op)
	run.State = pipeline.RunState(state)
	run.ErrorKind = pipeline.ErrorKind(kind)
	run.CompletedAt = completedAt
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &run.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	}
	return &run, nil
}
