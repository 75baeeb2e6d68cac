package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// SnapshotChannel is the NOTIFY channel carrying the container id of every
// snapshot write.
const SnapshotChannel = "berth_snapshots"

// UpsertSnapshot inserts or replaces the snapshot for its container id,
// keeping the original created_at, and notifies SnapshotChannel.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *container.Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("berth/postgres: encode snapshot: %w", err)
	}
	source := snap.Source
	if source == "" {
		source = container.DataSource
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO berth_container_records (
			container_id, operation, workflow_id, data, source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (container_id) DO UPDATE SET
			operation = EXCLUDED.operation,
			workflow_id = EXCLUDED.workflow_id,
			data = EXCLUDED.data,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`,
		snap.ContainerID, string(snap.Operation), snap.WorkflowID.String(), data, source, now,
	)
	if err != nil {
		return fmt.Errorf("berth/postgres: upsert snapshot: %w", err)
	}

	if _, notifyErr := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, SnapshotChannel, snap.ContainerID); notifyErr != nil {
		s.logger.Warn("failed to notify snapshot listeners",
			"container_id", snap.ContainerID, "error", notifyErr)
	}
	return nil
}

// GetSnapshot returns the snapshot stored for containerID.
func (s *Store) GetSnapshot(ctx context.Context, containerID string) (*container.Snapshot, error) {
	var (
		snap       container.Snapshot
		op         string
		workflowID string
		data       []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT container_id, operation, workflow_id, data, source, created_at, updated_at
		FROM berth_container_records
		WHERE container_id = $1`,
		containerID,
	).Scan(&snap.ContainerID, &op, &workflowID, &data, &snap.Source, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRecordNotFound
		}
		return nil, fmt.Errorf("berth/postgres: get snapshot: %w", err)
	}

	snap.Operation = container.Operation(op)
	if workflowID != "" {
		if snap.WorkflowID, err = id.ParseWorkflowID(workflowID); err != nil {
			return nil, fmt.Errorf("berth/postgres: parse workflow id %q: %w", workflowID, err)
		}
	}
	snap.Data = new(container.Data)
	if err := json.Unmarshal(data, snap.Data); err != nil {
		return nil, fmt.Errorf("berth/postgres: decode snapshot: %w", err)
	}
	return &snap, nil
}

// CountSnapshots returns the number of stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM berth_container_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("berth/postgres: count snapshots: %w", err)
	}
	return n, nil
}
