package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/query"
)

// Rules is a deterministic Reasoner. It spots the first container id in
// the query, classifies intent by keyword and composes a record with an
// empty message so the sanitizer phrases the answer.
type Rules struct{}

var _ Reasoner = Rules{}

// Plan implements Reasoner.
func (Rules) Plan(_ context.Context, q string, _ []capability.CatalogueEntry) (Plan, error) {
	intent := query.Classify(q)
	cid, ok := query.FindContainerID(q)
	if !ok {
		return Plan{Intent: intent, Confidence: 0.3}, nil
	}
	return Plan{
		ContainerID: cid,
		Intent:      intent,
		Capability:  intent.Capability(),
		Confidence:  0.9,
	}, nil
}

// Compose implements Reasoner.
func (Rules) Compose(_ context.Context, c Composition) (string, error) {
	rec := container.Record{
		Intent:     container.Ptr(c.Plan.Intent.String()),
		Confidence: container.Ptr(c.Plan.Confidence),
		DataSource: container.DataSource,
	}
	if c.Plan.ContainerID != "" {
		rec.ContainerID = container.Ptr(c.Plan.ContainerID)
	}
	if r := c.Result; r != nil {
		rec.ContainerData = r.Data
		if !r.OK() {
			rec.HasErrors = true
			rec.ErrorMessage = container.Ptr(failureMessage(r.ContainerID, r.Error))
		}
	}

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("agent: encode record: %w", err)
	}
	return "```json\n" + string(b) + "\n```", nil
}

func failureMessage(cid, detail string) string {
	if detail == "" {
		return fmt.Sprintf("I could not retrieve information for container %s. Please try again or contact the terminal directly.", cid)
	}
	return fmt.Sprintf("I could not retrieve information for container %s: %s", cid, detail)
}
