package container

import "context"

// RawStore persists fetched source documents for cache probes.
type RawStore interface {
	// GetRawDocument returns berth.ErrRawDocumentNotFound when absent.
	GetRawDocument(ctx context.Context, containerID string) (*RawDocument, error)

	// UpsertRawDocument inserts or replaces the document for its container id.
	UpsertRawDocument(ctx context.Context, doc *RawDocument) error
}

// RecordStore persists validated snapshots.
type RecordStore interface {
	// UpsertSnapshot inserts or replaces the snapshot for its container id.
	// CreatedAt is kept from the first write.
	UpsertSnapshot(ctx context.Context, s *Snapshot) error

	// GetSnapshot returns berth.ErrRecordNotFound when absent.
	GetSnapshot(ctx context.Context, containerID string) (*Snapshot, error)

	// CountSnapshots returns the number of stored snapshots.
	CountSnapshots(ctx context.Context) (int64, error)
}
