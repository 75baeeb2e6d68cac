package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
)

// GetRawDocument returns the raw document stored for containerID.
func (s *Store) GetRawDocument(ctx context.Context, containerID string) (*container.RawDocument, error) {
	var (
		d                   container.RawDocument
		op, status          string
		parsed              sql.NullString
		scrapedAt, updateAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT container_id, operation, raw_document, parsed_json, status,
		       error_message, scraped_at, updated_at
		FROM berth_raw_documents
		WHERE container_id = ?`,
		containerID,
	).Scan(&d.ContainerID, &op, &d.Content, &parsed, &status, &d.ErrorMessage, &scrapedAt, &updateAt)
	if err != nil {
		if isNoRows(err) {
			return nil, berth.ErrRawDocumentNotFound
		}
		return nil, fmt.Errorf("berth/sqlite: get raw document: %w", err)
	}

	d.Operation = container.Operation(op)
	d.Status = container.RawStatus(status)
	if parsed.Valid {
		d.ParsedJSON = []byte(parsed.String)
	}
	if d.ScrapedAt, err = parseTime(scrapedAt); err != nil {
		return nil, fmt.Errorf("berth/sqlite: parse scraped_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(updateAt); err != nil {
		return nil, fmt.Errorf("berth/sqlite: parse updated_at: %w", err)
	}
	return &d, nil
}

// UpsertRawDocument inserts or replaces the document for its container id.
func (s *Store) UpsertRawDocument(ctx context.Context, doc *container.RawDocument) error {
	now := timeNow()
	scrapedAt := doc.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO berth_raw_documents (
			container_id, operation, raw_document, parsed_json, status,
			error_message, scraped_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (container_id) DO UPDATE SET
			operation = excluded.operation,
			raw_document = excluded.raw_document,
			parsed_json = excluded.parsed_json,
			status = excluded.status,
			error_message = excluded.error_message,
			scraped_at = excluded.scraped_at,
			updated_at = excluded.updated_at`,
		doc.ContainerID, string(doc.Operation), doc.Content, nullText(doc.ParsedJSON),
		string(doc.Status), doc.ErrorMessage, formatTime(scrapedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("berth/sqlite: upsert raw document: %w", err)
	}
	return nil
}
