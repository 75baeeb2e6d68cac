// Package memory provides an in-memory store.Store for tests and development.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
	"github.com/xraph/berth/store"
)

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	raws      map[string]*container.RawDocument
	snapshots map[string]*container.Snapshot
	runs      map[string]*pipeline.Run
	logs      []*query.Log

	now func() time.Time
}

// Option configures a memory Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		raws:      make(map[string]*container.RawDocument),
		snapshots: make(map[string]*container.Snapshot),
		runs:      make(map[string]*pipeline.Run),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Raw document store
// ──────────────────────────────────────────────────

// GetRawDocument returns the raw document stored for containerID.
func (m *Store) GetRawDocument(_ context.Context, containerID string) (*container.RawDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.raws[containerID]
	if !ok {
		return nil, berth.ErrRawDocumentNotFound
	}
	return cloneRaw(d), nil
}

// UpsertRawDocument inserts or replaces the document for its container id.
func (m *Store) UpsertRawDocument(_ context.Context, doc *container.RawDocument) error {
	now := m.now().UTC()
	cp := cloneRaw(doc)
	if cp.ScrapedAt.IsZero() {
		cp.ScrapedAt = now
	}
	cp.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.raws[doc.ContainerID] = cp
	return nil
}

// ──────────────────────────────────────────────────
// Record store
// ──────────────────────────────────────────────────

// UpsertSnapshot inserts or replaces the snapshot for its container id,
// keeping the original CreatedAt.
func (m *Store) UpsertSnapshot(_ context.Context, s *container.Snapshot) error {
	now := m.now().UTC()
	cp := cloneSnapshot(s)
	if cp.Source == "" {
		cp.Source = container.DataSource
	}
	cp.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.snapshots[s.ContainerID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	m.snapshots[s.ContainerID] = cp
	return nil
}

// GetSnapshot returns the snapshot stored for containerID.
func (m *Store) GetSnapshot(_ context.Context, containerID string) (*container.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[containerID]
	if !ok {
		return nil, berth.ErrRecordNotFound
	}
	return cloneSnapshot(s), nil
}

// CountSnapshots returns the number of stored snapshots.
func (m *Store) CountSnapshots(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.snapshots)), nil
}

// ──────────────────────────────────────────────────
// Run store
// ──────────────────────────────────────────────────

// CreateRun persists a new run.
func (m *Store) CreateRun(_ context.Context, run *pipeline.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.WorkflowID.String()] = run.Clone()
	return nil
}

// UpdateRun replaces a stored run.
func (m *Store) UpdateRun(_ context.Context, run *pipeline.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := run.WorkflowID.String()
	if _, ok := m.runs[key]; !ok {
		return berth.ErrRunNotFound
	}
	m.runs[key] = run.Clone()
	return nil
}

// GetRun retrieves a run by workflow id.
func (m *Store) GetRun(_ context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[workflowID.String()]
	if !ok {
		return nil, berth.ErrRunNotFound
	}
	return r.Clone(), nil
}

// ListRuns returns runs newest first.
func (m *Store) ListRuns(_ context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*pipeline.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if opts.ContainerID != "" && r.ContainerID != opts.ContainerID {
			continue
		}
		result = append(result, r.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Query log store
// ──────────────────────────────────────────────────

// AppendQueryLog stores a new log entry.
func (m *Store) AppendQueryLog(_ context.Context, l *query.Log) error {
	cp := *l
	cp.Result = slices.Clone(l.Result)
	if cp.ID.IsNil() {
		cp.ID = id.NewQueryID()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, &cp)
	return nil
}

// ListQueryLogs returns logs newest first.
func (m *Store) ListQueryLogs(_ context.Context, opts query.LogOpts) ([]*query.Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*query.Log, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if opts.ContainerID != "" && l.ExtractedContainer != opts.ContainerID {
			continue
		}
		cp := *l
		cp.Result = slices.Clone(l.Result)
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func cloneRaw(d *container.RawDocument) *container.RawDocument {
	cp := *d
	cp.ParsedJSON = slices.Clone(d.ParsedJSON)
	return &cp
}

func cloneSnapshot(s *container.Snapshot) *container.Snapshot {
	cp := *s
	cp.Data = s.Data.Clone()
	return &cp
}
