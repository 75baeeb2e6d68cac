package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// UpsertSnapshot inserts or replaces the snapshot for its container id,
// keeping the original created_at.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *container.Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("berth/sqlite: encode snapshot: %w", err)
	}
	source := snap.Source
	if source == "" {
		source = container.DataSource
	}
	now := formatTime(timeNow())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO berth_container_records (
			container_id, operation, workflow_id, data, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (container_id) DO UPDATE SET
			operation = excluded.operation,
			workflow_id = excluded.workflow_id,
			data = excluded.data,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		snap.ContainerID, string(snap.Operation), snap.WorkflowID.String(), string(data), source, now, now,
	)
	if err != nil {
		return fmt.Errorf("berth/sqlite: upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot stored for containerID.
func (s *Store) GetSnapshot(ctx context.Context, containerID string) (*container.Snapshot, error) {
	var (
		snap                 container.Snapshot
		op, workflowID, data string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT container_id, operation, workflow_id, data, source, created_at, updated_at
		FROM berth_container_records
		WHERE container_id = ?`,
		containerID,
	).Scan(&snap.ContainerID, &op, &workflowID, &data, &snap.Source, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRecordNotFound
		}
		return nil, fmt.Errorf("berth/sqlite: get snapshot: %w", err)
	}

	snap.Operation = container.Operation(op)
	if workflowID != "" {
		if snap.WorkflowID, err = id.ParseWorkflowID(workflowID); err != nil {
			return nil, fmt.Errorf("berth/sqlite: parse workflow id %q: %w", workflowID, err)
		}
	}
	snap.Data = new(container.Data)
	if err := json.Unmarshal([]byte(data), snap.Data); err != nil {
		return nil, fmt.Errorf("berth/sqlite: decode snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("berth/sqlite: parse created_at: %w", err)
	}
	if snap.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("berth/sqlite: parse updated_at: %w", err)
	}
	return &snap, nil
}

// CountSnapshots returns the number of stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM berth_container_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("berth/sqlite: count snapshots: %w", err)
	}
	return n, nil
}
