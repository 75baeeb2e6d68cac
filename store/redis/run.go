package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/berth"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
)

// CreateRun persists a new run and indexes it by start time.
func (s *Store) CreateRun(ctx context.Context, run *pipeline.Run) error {
	rID := run.WorkflowID.String()
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("berth/redis: encode run: %w", err)
	}

	ok, err := s.client.SetNX(ctx, runKey(rID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("berth/redis: create run: %w", err)
	}
	if !ok {
		return fmt.Errorf("berth/redis: run %s already exists", rID)
	}

	score := float64(run.StartedAt.UnixNano())
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, runsKey, goredis.Z{Score: score, Member: rID})
	pipe.ZAdd(ctx, containerRunsKey(run.ContainerID), goredis.Z{Score: score, Member: rID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("berth/redis: index run: %w", err)
	}
	return nil
}

// UpdateRun replaces a stored run.
func (s *Store) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("berth/redis: encode run: %w", err)
	}
	ok, err := s.client.SetXX(ctx, runKey(run.WorkflowID.String()), b, 0).Result()
	if err != nil {
		return fmt.Errorf("berth/redis: update run: %w", err)
	}
	if !ok {
		return berth.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by workflow id.
func (s *Store) GetRun(ctx context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	raw, err := s.client.Get(ctx, runKey(workflowID.String())).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, berth.ErrRunNotFound
		}
		return nil, fmt.Errorf("berth/redis: get run: %w", err)
	}
	var run pipeline.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("berth/redis: decode run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	index := runsKey
	if opts.ContainerID != "" {
		index = containerRunsKey(opts.ContainerID)
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, stop(opts.Limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("berth/redis: list runs: %w", err)
	}

	runs := make([]*pipeline.Run, 0, len(ids))
	for _, rID := range ids {
		wf, parseErr := id.ParseWorkflowID(rID)
		if parseErr != nil {
			continue
		}
		r, getErr := s.GetRun(ctx, wf)
		if getErr != nil {
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// stop converts a list limit into a ZRANGE stop index.
func stop(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	return int64(limit - 1)
}
