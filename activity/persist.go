package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/extract"
	"github.com/xraph/berth/pipeline"
)

// PersistRaw stores a freshly fetched document so later runs can hit the
// cache. The parsed row is attached when the document parses. A page
// without a results row is stored as failed, so the next run searches
// again instead of replaying the empty page.
type PersistRaw struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *PersistRaw) Execute(ctx context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	if sc.Raw == nil {
		return pipeline.Output{}, nil
	}
	doc := *sc.Raw
	if len(doc.ParsedJSON) == 0 {
		row, err := extract.ParseTable(doc.Content)
		switch {
		case err != nil:
			doc.Status = container.RawFailed
			doc.ErrorMessage = err.Error()
		case len(row) == 0:
			doc.Status = container.RawFailed
			doc.ErrorMessage = "no results row for " + sc.ContainerID
		default:
			if b, err := json.Marshal(row); err == nil {
				doc.ParsedJSON = b
			}
		}
	}
	if err := e.deps.Raws.UpsertRawDocument(ctx, &doc); err != nil {
		return pipeline.Output{}, fmt.Errorf("store raw document: %w", err)
	}
	return pipeline.Output{}, nil
}

// Persist upserts the validated record as the container's snapshot.
type Persist struct{ deps Deps }

// Execute implements pipeline.Executor.
func (e *Persist) Execute(ctx context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
	if sc.Record == nil {
		return pipeline.Output{}, pipeline.Schema("no validated record to persist")
	}
	snap := &container.Snapshot{
		ContainerID: sc.ContainerID,
		Operation:   sc.Operation,
		WorkflowID:  sc.WorkflowID,
		Data:        sc.Record,
		Source:      container.DataSource,
	}
	if err := e.deps.Records.UpsertSnapshot(ctx, snap); err != nil {
		return pipeline.Output{}, fmt.Errorf("store snapshot: %w", err)
	}
	e.deps.logger().Debug("snapshot stored",
		slog.String("container_id", sc.ContainerID),
		slog.String("workflow_id", sc.WorkflowID.String()),
	)
	return pipeline.Output{}, nil
}
