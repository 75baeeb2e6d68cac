package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/berth/id"
	"github.com/xraph/berth/query"
)

// AppendQueryLog stores a new log entry, assigning an id and timestamp
// when absent.
func (s *Store) AppendQueryLog(ctx context.Context, l *query.Log) error {
	m := toQueryLogModel(l)
	if l.ID.IsNil() {
		m.ID = id.NewQueryID().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if _, err := s.db.Collection(colQueryLogs).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("berth/mongo: append query log: %w", err)
	}
	return nil
}

// ListQueryLogs returns logs newest first.
func (s *Store) ListQueryLogs(ctx context.Context, opts query.LogOpts) ([]*query.Log, error) {
	filter := bson.M{}
	if opts.ContainerID != "" {
		filter["extracted_container"] = opts.ContainerID
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.db.Collection(colQueryLogs).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("berth/mongo: list query logs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []queryLogModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("berth/mongo: list query logs decode: %w", err)
	}

	logs := make([]*query.Log, 0, len(models))
	for i := range models {
		l, convErr := fromQueryLogModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		logs = append(logs, l)
	}
	return logs, nil
}
