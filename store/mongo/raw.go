package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
)

// GetRawDocument returns the raw document stored for containerID.
func (s *Store) GetRawDocument(ctx context.Context, containerID string) (*container.RawDocument, error) {
	var m rawModel
	err := s.db.Collection(colRawDocuments).FindOne(ctx, bson.M{"_id": containerID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, berth.ErrRawDocumentNotFound
		}
		return nil, fmt.Errorf("berth/mongo: get raw document: %w", err)
	}
	return fromRawModel(&m), nil
}

// UpsertRawDocument inserts or replaces the document for its container id.
func (s *Store) UpsertRawDocument(ctx context.Context, doc *container.RawDocument) error {
	t := now()
	scrapedAt := doc.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = t
	}
	m := &rawModel{
		ContainerID:  doc.ContainerID,
		Operation:    string(doc.Operation),
		Content:      doc.Content,
		ParsedJSON:   string(doc.ParsedJSON),
		Status:       string(doc.Status),
		ErrorMessage: doc.ErrorMessage,
		ScrapedAt:    scrapedAt,
		UpdatedAt:    t,
	}
	_, err := s.db.Collection(colRawDocuments).ReplaceOne(ctx,
		bson.M{"_id": m.ContainerID}, m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("berth/mongo: upsert raw document: %w", err)
	}
	return nil
}
