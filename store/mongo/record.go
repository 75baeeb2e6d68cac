package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
)

// UpsertSnapshot inserts or replaces the snapshot for its container id.
// created_at is only written on insert.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *container.Snapshot) error {
	data, err := dataToBSON(snap.Data)
	if err != nil {
		return fmt.Errorf("berth/mongo: encode snapshot: %w", err)
	}
	source := snap.Source
	if source == "" {
		source = container.DataSource
	}
	t := now()

	update := bson.M{
		"$set": bson.M{
			"operation":   string(snap.Operation),
			"workflow_id": snap.WorkflowID.String(),
			"data":        data,
			"source":      source,
			"updated_at":  t,
		},
		"$setOnInsert": bson.M{"created_at": t},
	}
	_, err = s.db.Collection(colRecords).UpdateOne(ctx,
		bson.M{"_id": snap.ContainerID}, update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("berth/mongo: upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot stored for containerID.
func (s *Store) GetSnapshot(ctx context.Context, containerID string) (*container.Snapshot, error) {
	var m recordModel
	err := s.db.Collection(colRecords).FindOne(ctx, bson.M{"_id": containerID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, berth.ErrRecordNotFound
		}
		return nil, fmt.Errorf("berth/mongo: get snapshot: %w", err)
	}
	return fromRecordModel(&m)
}

// CountSnapshots returns the number of stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(colRecords).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("berth/mongo: count snapshots: %w", err)
	}
	return n, nil
}
