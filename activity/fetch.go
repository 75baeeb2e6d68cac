package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
)

// CacheProbe looks up the stored raw document for the container. Absent,
// failed or stale documents are a miss, reported as an empty output.
type CacheProbe struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *CacheProbe) Execute(ctx context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	raw, err := e.deps.Raws.GetRawDocument(ctx, sc.ContainerID)
	if errors.Is(err, berth.ErrRawDocumentNotFound) {
		return pipeline.Output{}, nil
	}
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("load raw document: %w", err)
	}
	if raw.Status != container.RawSuccess {
		return pipeline.Output{}, nil
	}
	if raw.Stale(e.deps.now(), e.deps.RawMaxAge) {
		e.deps.logger().Debug("cached document is stale",
			slog.String("container_id", sc.ContainerID),
			slog.Time("scraped_at", raw.ScrapedAt),
		)
		return pipeline.Output{}, nil
	}
	return pipeline.Output{Raw: raw}, nil
}

// SessionAcquire opens a session from the provider.
type SessionAcquire struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *SessionAcquire) Execute(ctx context.Context, _ pipeline.StepContext) (pipeline.Output, error) {
	s, err := e.deps.Sessions.Open(ctx)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("open session: %w", err)
	}
	return pipeline.Output{Session: s}, nil
}

// Search fetches the results document through the run's session.
type Search struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *Search) Execute(ctx context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	if sc.Session == nil {
		return pipeline.Output{}, errors.New("no session acquired")
	}
	doc, err := sc.Session.Search(ctx, sc.ContainerID)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("search %s: %w", sc.ContainerID, err)
	}
	return pipeline.Output{Raw: &container.RawDocument{
		ContainerID: sc.ContainerID,
		Operation:   sc.Operation,
		Content:     doc,
		Status:      container.RawSuccess,
		ScrapedAt:   e.deps.now(),
	}}, nil
}
