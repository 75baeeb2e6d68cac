package agent

import "time"

// ProgressStep names a stage of answering a query.
type ProgressStep string

const (
	StepParseQuery      ProgressStep = "parse_query"
	StepExtractEntities ProgressStep = "extract_entities"
	StepClassifyIntent  ProgressStep = "classify_intent"
	StepSelectTool      ProgressStep = "select_tool"
	StepTriggerWorkflow ProgressStep = "trigger_workflow"
	StepFormatResponse  ProgressStep = "format_response"
)

// ProgressStatus is the state of a stage.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Progress is one streamed update.
type Progress struct {
	Step      ProgressStep   `json:"step"`
	Status    ProgressStatus `json:"status"`
	Message   string         `json:"message"`
	Percent   int            `json:"progress"`
	Data      any            `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressFunc receives progress updates. It is called synchronously from
// the answering goroutine.
type ProgressFunc func(Progress)

type reporter struct {
	fn  ProgressFunc
	now func() time.Time
}

func (r reporter) send(step ProgressStep, status ProgressStatus, pct int, msg string, data any) {
	if r.fn == nil {
		return
	}
	r.fn(Progress{
		Step:      step,
		Status:    status,
		Message:   msg,
		Percent:   pct,
		Data:      data,
		Timestamp: r.now().UTC(),
	})
}
