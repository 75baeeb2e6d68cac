package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// UpsertSnapshot inserts or replaces the snapshot for its container id.
// created_at is set only by the first write.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *container.Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("berth/redis: encode snapshot: %w", err)
	}
	source := snap.Source
	if source == "" {
		source = container.DataSource
	}
	now := formatTime(s.timestamp())
	key := recordKey(snap.ContainerID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"container_id": snap.ContainerID,
		"operation":    string(snap.Operation),
		"workflow_id":  snap.WorkflowID.String(),
		"data":         string(data),
		"source":       source,
		"updated_at":   now,
	})
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.SAdd(ctx, recordIDsKey, snap.ContainerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("berth/redis: upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot stored for containerID.
func (s *Store) GetSnapshot(ctx context.Context, containerID string) (*container.Snapshot, error) {
	vals, err := s.client.HGetAll(ctx, recordKey(containerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("berth/redis: get snapshot: %w", err)
	}
	if len(vals) == 0 {
		return nil, berth.ErrRecordNotFound
	}

	snap := &container.Snapshot{
		ContainerID: vals["container_id"],
		Operation:   container.Operation(vals["operation"]),
		Source:      vals["source"],
		Data:        new(container.Data),
	}
	if wf := vals["workflow_id"]; wf != "" {
		if snap.WorkflowID, err = id.ParseWorkflowID(wf); err != nil {
			return nil, fmt.Errorf("berth/redis: parse workflow id %q: %w", wf, err)
		}
	}
	if err := json.Unmarshal([]byte(vals["data"]), snap.Data); err != nil {
		return nil, fmt.Errorf("berth/redis: decode snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTime(vals["created_at"]); err != nil {
		return nil, fmt.Errorf("berth/redis: parse created_at: %w", err)
	}
	if snap.UpdatedAt, err = parseTime(vals["updated_at"]); err != nil {
		return nil, fmt.Errorf("berth/redis: parse updated_at: %w", err)
	}
	return snap, nil
}

// CountSnapshots returns the number of stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, recordIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("berth/redis: count snapshots: %w", err)
	}
	return n, nil
}
