package redis

import (
	"context"
	"fmt"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
)

// GetRawDocument returns the raw document stored for containerID.
func (s *Store) GetRawDocument(ctx context.Context, containerID string) (*container.RawDocument, error) {
	vals, err := s.client.HGetAll(ctx, rawKey(containerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("berth/redis: get raw document: %w", err)
	}
	if len(vals) == 0 {
		return nil, berth.ErrRawDocumentNotFound
	}

	d := &container.RawDocument{
		ContainerID:  vals["container_id"],
		Operation:    container.Operation(vals["operation"]),
		Content:      vals["raw_document"],
		Status:       container.RawStatus(vals["status"]),
		ErrorMessage: vals["error_message"],
	}
	if p := vals["parsed_json"]; p != "" {
		d.ParsedJSON = []byte(p)
	}
	if d.ScrapedAt, err = parseTime(vals["scraped_at"]); err != nil {
		return nil, fmt.Errorf("berth/redis: parse scraped_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(vals["updated_at"]); err != nil {
		return nil, fmt.Errorf("berth/redis: parse updated_at: %w", err)
	}
	return d, nil
}

// UpsertRawDocument inserts or replaces the document for its container id.
func (s *Store) UpsertRawDocument(ctx context.Context, doc *container.RawDocument) error {
	now := s.timestamp()
	scrapedAt := doc.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = now
	}
	key := rawKey(doc.ContainerID)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"container_id":  doc.ContainerID,
		"operation":     string(doc.Operation),
		"raw_document":  doc.Content,
		"parsed_json":   string(doc.ParsedJSON),
		"status":        string(doc.Status),
		"error_message": doc.ErrorMessage,
		"scraped_at":    formatTime(scrapedAt),
		"updated_at":    formatTime(now),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("berth/redis: upsert raw document: %w", err)
	}
	return nil
}
