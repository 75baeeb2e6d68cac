package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
)

// GetRawDocument returns the raw document stored for containerID.
func (s *Store) GetRawDocument(ctx context.Context, containerID string) (*container.RawDocument, error) {
	var (
		d      container.RawDocument
		op     string
		status string
		parsed []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT container_id, operation, raw_document, parsed_json, status,
		       error_message, scraped_at, updated_at
		FROM berth_raw_documents
		WHERE container_id = $1`,
		containerID,
	).Scan(&d.ContainerID, &op, &d.Content, &parsed, &status,
		&d.ErrorMessage, &d.ScrapedAt, &d.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRawDocumentNotFound
		}
		return nil, fmt.Errorf("berth/postgres: get raw document: %w", err)
	}
	d.Operation = container.Operation(op)
	d.Status = container.RawStatus(status)
	d.ParsedJSON = parsed
	return &d, nil
}

// UpsertRawDocument inserts or replaces the document for its container id.
func (s *Store) UpsertRawDocument(ctx context.Context, doc *container.RawDocument) error {
	now := time.Now().UTC()
	scrapedAt := doc.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = now
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO berth_raw_documents (
			container_id, operation, raw_document, parsed_json, status,
			error_message, scraped_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (container_id) DO UPDATE SET
			operation = EXCLUDED.operation,
			raw_document = EXCLUDED.raw_document,
			parsed_json = EXCLUDED.parsed_json,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = EXCLUDED.updated_at`,
		doc.ContainerID, string(doc.Operation), doc.Content, nullJSON(doc.ParsedJSON),
		string(doc.Status), doc.ErrorMessage, scrapedAt, now,
	)
	if err != nil {
		return fmt.Errorf("berth/postgres: upsert raw document: %w", err)
	}
	return nil
}
