package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/berth/id"
	"github.com/xraph/berth/query"
)

// AppendQueryLog stores a new log entry, assigning an id and timestamp
// when absent.
func (s *Store) AppendQueryLog(ctx context.Context, l *query.Log) error {
	logID := l.ID
	if logID.IsNil() {
		logID = id.NewQueryID()
	}
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO berth_query_logs (
			id, user_query, extracted_container, intent, response_time_ms, status,
			error_message, workflow_id, cached, query_result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		logID.String(), l.UserQuery, l.ExtractedContainer, string(l.Intent),
		l.ResponseTimeMS, l.Status, l.ErrorMessage, l.WorkflowID, l.Cached,
		nullJSON(l.Result), createdAt,
	)
	if err != nil {
		return fmt.Errorf("berth/postgres: append query log: %w", err)
	}
	return nil
}

// ListQueryLogs returns logs newest first.
func (s *Store) ListQueryLogs(ctx context.Context, opts query.LogOpts) ([]*query.Log, error) {
	q := `
		SELECT id, user_query, extracted_container, intent, response_time_ms, status,
		       error_message, workflow_id, cached, query_result, created_at
		FROM berth_query_logs`
	var args []any
	if opts.ContainerID != "" {
		args = append(args, opts.ContainerID)
		q += ` WHERE extracted_container = $1`
	}
	q += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("berth/postgres: list query logs: %w", err)
	}
	defer rows.Close()

	var logs []*query.Log
	for rows.Next() {
		var (
			l      query.Log
			logID  string
			intent string
			result []byte
		)
		if err := rows.Scan(&logID, &l.UserQuery, &l.ExtractedContainer, &intent,
			&l.ResponseTimeMS, &l.Status, &l.ErrorMessage, &l.WorkflowID, &l.Cached,
			&result, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("berth/postgres: scan query log: %w", err)
		}
		if l.ID, err = id.ParseQueryID(logID); err != nil {
			return nil, fmt.Errorf("berth/postgres: parse query id %q: %w", logID, err)
		}
		l.Intent = query.Intent(intent)
		l.Result = result
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
