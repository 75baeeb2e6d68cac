package sqlite

import (
	"context"
	"database/sql"
	"fmt"

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
		createdAt = timeNow()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO berth_query_logs (
			id, user_query, extracted_container, intent, response_time_ms, status,
			error_message, workflow_id, cached, query_result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		logID.String(), l.UserQuery, l.ExtractedContainer, string(l.Intent),
		l.ResponseTimeMS, l.Status, l.ErrorMessage, l.WorkflowID, l.Cached,
		nullText(l.Result), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("berth/sqlite: append query log: %w", err)
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
		q += ` WHERE extracted_container = ?`
		args = append(args, opts.ContainerID)
	}
	q += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("berth/sqlite: list query logs: %w", err)
	}
	defer rows.Close()

	var logs []*query.Log
	for rows.Next() {
		var (
			l                   query.Log
			logID, intent, when string
			result              sql.NullString
		)
		if err := rows.Scan(&logID, &l.UserQuery, &l.ExtractedContainer, &intent,
			&l.ResponseTimeMS, &l.Status, &l.ErrorMessage, &l.WorkflowID, &l.Cached,
			&result, &when); err != nil {
			return nil, fmt.Errorf("berth/sqlite: scan query log: %w", err)
		}
		if l.ID, err = id.ParseQueryID(logID); err != nil {
			return nil, fmt.Errorf("berth/sqlite: parse query id %q: %w", logID, err)
		}
		if l.CreatedAt, err = parseTime(when); err != nil {
			return nil, fmt.Errorf("berth/sqlite: parse created_at: %w", err)
		}
		l.Intent = query.Intent(intent)
		if result.Valid {
			l.Result = []byte(result.String)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
