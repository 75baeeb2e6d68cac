package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// ── Raw document model ────────────────────────────────────────────

type rawModel struct {
	ContainerID  string    `bson:"_id"`
	Operation    string    `bson:"operation"`
	Content      string    `bson:"raw_document"`
	ParsedJSON   string    `bson:"parsed_json,omitempty"`
	Status       string    `bson:"status"`
	ErrorMessage string    `bson:"error_message"`
	ScrapedAt    time.Time `bson:"scraped_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func fromRawModel(m *rawModel) *container.RawDocument {
	d := &container.RawDocument{
		ContainerID:  m.ContainerID,
		Operation:    container.Operation(m.Operation),
		Content:      m.Content,
		Status:       container.RawStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		ScrapedAt:    m.ScrapedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.ParsedJSON != "" {
		d.ParsedJSON = json.RawMessage(m.ParsedJSON)
	}
	return d
}

// ── Snapshot model ────────────────────────────────────────────────

type recordModel struct {
	ContainerID string    `bson:"_id"`
	Operation   string    `bson:"operation"`
	WorkflowID  string    `bson:"workflow_id"`
	Data        bson.M    `bson:"data"`
	Source      string    `bson:"source"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// dataToBSON stores container data under its JSON field names.
func dataToBSON(d *container.Data) (bson.M, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(b, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func dataFromBSON(doc bson.M) (*container.Data, error) {
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}
	d := new(container.Data)
	if err := json.Unmarshal(b, d); err != nil {
		return nil, err
	}
	return d, nil
}

func fromRecordModel(m *recordModel) (*container.Snapshot, error) {
	data, err := dataFromBSON(m.Data)
	if err != nil {
		return nil, fmt.Errorf("berth/mongo: decode snapshot data: %w", err)
	}
	s := &container.Snapshot{
		ContainerID: m.ContainerID,
		Operation:   container.Operation(m.Operation),
		Data:        data,
		Source:      m.Source,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.WorkflowID != "" {
		if s.WorkflowID, err = id.ParseWorkflowID(m.WorkflowID); err != nil {
			return nil, fmt.Errorf("berth/mongo: parse workflow id %q: %w", m.WorkflowID, err)
		}
	}
	return s, nil
}

// ── Run model ─────────────────────────────────────────────────────

type stepModel struct {
	Step     string `bson:"step"`
	Attempts int    `bson:"attempts"`
	Elapsed  int64  `bson:"elapsed"`
	Error    string `bson:"error,omitempty"`
	Kind     string `bson:"kind,omitempty"`
	Skipped  bool   `bson:"skipped,omitempty"`
	Detached bool   `bson:"detached,omitempty"`
}

type runModel struct {
	WorkflowID    string      `bson:"_id"`
	ContainerID   string      `bson:"container_id"`
	Operation     string      `bson:"operation"`
	CorrelationID string      `bson:"correlation_id"`
	State         string      `bson:"state"`
	CacheHit      bool        `bson:"cache_hit"`
	Error         string      `bson:"error"`
	ErrorKind     string      `bson:"error_kind"`
	PersistError  string      `bson:"persist_error"`
	Steps         []stepModel `bson:"steps"`
	StartedAt     time.Time   `bson:"started_at"`
	CompletedAt   *time.Time  `bson:"completed_at,omitempty"`
}

func toRunModel(r *pipeline.Run) *runModel {
	steps := make([]stepModel, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, stepModel{
			Step:     s.Step.String(),
			Attempts: s.Attempts,
			Elapsed:  s.Elapsed.Nanoseconds(),
			Error:    s.Error,
			Kind:     string(s.Kind),
			Skipped:  s.Skipped,
			Detached: s.Detached,
		})
	}
	return &runModel{
		WorkflowID:    r.WorkflowID.String(),
		ContainerID:   r.ContainerID,
		Operation:     string(r.Operation),
		CorrelationID: r.CorrelationID,
		State:         string(r.State),
		CacheHit:      r.CacheHit,
		Error:         r.Error,
		ErrorKind:     string(r.ErrorKind),
		PersistError:  r.PersistError,
		Steps:         steps,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}

func fromRunModel(m *runModel) (*pipeline.Run, error) {
	wf, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("berth/mongo: parse workflow id %q: %w", m.WorkflowID, err)
	}
	r := &pipeline.Run{
		WorkflowID:    wf,
		ContainerID:   m.ContainerID,
		Operation:     container.Operation(m.Operation),
		CorrelationID: m.CorrelationID,
		State:         pipeline.RunState(m.State),
		CacheHit:      m.CacheHit,
		Error:         m.Error,
		ErrorKind:     pipeline.ErrorKind(m.ErrorKind),
		PersistError:  m.PersistError,
		StartedAt:     m.StartedAt.UTC(),
	}
	if m.CompletedAt != nil {
		t := m.CompletedAt.UTC()
		r.CompletedAt = &t
	}
	for _, s := range m.Steps {
		step, err := pipeline.ParseStep(s.Step)
		if err != nil {
			return nil, fmt.Errorf("berth/mongo: %w", err)
		}
		r.Steps = append(r.Steps, pipeline.StepReport{
			Step:     step,
			Attempts: s.Attempts,
			Elapsed:  time.Duration(s.Elapsed),
			Error:    s.Error,
			Kind:     pipeline.ErrorKind(s.Kind),
			Skipped:  s.Skipped,
			Detached: s.Detached,
		})
	}
	return r, nil
}

// ── Query log model ───────────────────────────────────────────────

type queryLogModel struct {
	ID                 string    `bson:"_id"`
	UserQuery          string    `bson:"user_query"`
	ExtractedContainer string    `bson:"extracted_container"`
	Intent             string    `bson:"intent"`
	ResponseTimeMS     int64     `bson:"response_time_ms"`
	Status             string    `bson:"status"`
	ErrorMessage       string    `bson:"error_message"`
	WorkflowID         string    `bson:"workflow_id"`
	Cached             bool      `bson:"cached"`
	Result             string    `bson:"query_result,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
}

func toQueryLogModel(l *query.Log) *queryLogModel {
	return &queryLogModel{
		ID:                 l.ID.String(),
		UserQuery:          l.UserQuery,
		ExtractedContainer: l.ExtractedContainer,
		Intent:             string(l.Intent),
		ResponseTimeMS:     l.ResponseTimeMS,
		Status:             l.Status,
		ErrorMessage:       l.ErrorMessage,
		WorkflowID:         l.WorkflowID,
		Cached:             l.Cached,
		Result:             string(l.Result),
		CreatedAt:          l.CreatedAt,
	}
}

func fromQueryLogModel(m *queryLogModel) (*query.Log, error) {
	qid, err := id.ParseQueryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("berth/mongo: parse query id %q: %w", m.ID, err)
	}
	l := &query.Log{
		ID:                 qid,
		UserQuery:          m.UserQuery,
		ExtractedContainer: m.ExtractedContainer,
		Intent:             query.Intent(m.Intent),
		ResponseTimeMS:     m.ResponseTimeMS,
		Status:             m.Status,
		ErrorMessage:       m.ErrorMessage,
		WorkflowID:         m.WorkflowID,
		Cached:             m.Cached,
		CreatedAt:          m.CreatedAt.UTC(),
	}
	if m.Result != "" {
		l.Result = json.RawMessage(m.Result)
	}
	return l, nil
}
