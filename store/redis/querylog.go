package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/berth/id"
	"github.com/xraph/berth/query"
)

// AppendQueryLog stores a new log entry, assigning an id and timestamp
// when absent.
func (s *Store) AppendQueryLog(ctx context.Context, l *query.Log) error {
	cp := *l
	if cp.ID.IsNil() {
		cp.ID = id.NewQueryID()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.timestamp()
	}
	b, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("berth/redis: encode query log: %w", err)
	}

	qID := cp.ID.String()
	score := float64(cp.CreatedAt.UnixNano())
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, queryLogKey(qID), b, 0)
	pipe.ZAdd(ctx, queryLogsKey, goredis.Z{Score: score, Member: qID})
	if cp.ExtractedContainer != "" {
		pipe.ZAdd(ctx, containerQueryLogsKey(cp.ExtractedContainer), goredis.Z{Score: score, Member: qID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("berth/redis: append query log: %w", err)
	}
	return nil
}

// ListQueryLogs returns logs newest first.
func (s *Store) ListQueryLogs(ctx context.Context, opts query.LogOpts) ([]*query.Log, error) {
	index := queryLogsKey
	if opts.ContainerID != "" {
		index = containerQueryLogsKey(opts.ContainerID)
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, stop(opts.Limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("berth/redis: list query logs: %w", err)
	}

	logs := make([]*query.Log, 0, len(ids))
	for _, qID := range ids {
		raw, getErr := s.client.Get(ctx, queryLogKey(qID)).Bytes()
		if getErr != nil {
			continue
		}
		var l query.Log
		if err := json.Unmarshal(raw, &l); err != nil {
			continue
		}
		logs = append(logs, &l)
	}
	return logs, nil
}
