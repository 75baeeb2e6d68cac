package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/berth"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
)

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, run *pipeline.Run) error {
	_, err := s.db.Collection(colRuns).InsertOne(ctx, toRunModel(run))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("berth/mongo: run %s already exists", run.WorkflowID)
		}
		return fmt.Errorf("berth/mongo: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by workflow id.
func (s *Store) GetRun(ctx context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	var m runModel
	err := s.db.Collection(colRuns).FindOne(ctx, bson.M{"_id": workflowID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, berth.ErrRunNotFound
		}
		return nil, fmt.Errorf("berth/mongo: get run: %w", err)
	}
	return fromRunModel(&m)
}

// UpdateRun replaces a stored run.
func (s *Store) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	m := toRunModel(run)
	res, err := s.db.Collection(colRuns).ReplaceOne(ctx, bson.M{"_id": m.WorkflowID}, m)
	if err != nil {
		return fmt.Errorf("berth/mongo: update run: %w", err)
	}
	if res.MatchedCount == 0 {
		return berth.ErrRunNotFound
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	filter := bson.M{}
	if opts.ContainerID != "" {
		filter["container_id"] = opts.ContainerID
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.db.Collection(colRuns).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("berth/mongo: list runs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []runModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("berth/mongo: list runs decode: %w", err)
	}

	runs := make([]*pipeline.Run, 0, len(models))
	for i := range models {
		r, convErr := fromRunModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		runs = append(runs, r)
	}
	return runs, nil
}
