package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/berth/cache"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/query"
	"github.com/xraph/berth/sanitize"
)

// Executor runs a capability. *dispatch.Dispatcher satisfies it.
type Executor interface {
	Execute(ctx context.Context, name string, params map[string]string) (*dispatch.ToolResult, error)
}

// Cataloguer lists the capabilities a reasoner may choose from.
// *capability.Registry satisfies it.
type Cataloguer interface {
	Catalogue() []capability.CatalogueEntry
}

// Observer is notified after every answered query.
type Observer interface {
	QueryAnswered(ctx context.Context, l *query.Log)
}

// Answer is the outcome of one query.
type Answer struct {
	QueryID        id.QueryID        `json:"query_id"`
	Record         *container.Record `json:"result"`
	ContainerID    string            `json:"container_id,omitempty"`
	Intent         query.Intent      `json:"intent,omitempty"`
	WorkflowID     string            `json:"workflow_id,omitempty"`
	Cached         bool              `json:"cached"`
	ResponseTimeMS int64             `json:"response_time_ms"`

	status string
}

// cachedAnswer is what the answer cache stores.
type cachedAnswer struct {
	Record      *container.Record `json:"record"`
	ContainerID string            `json:"container_id"`
	Intent      query.Intent      `json:"intent"`
	WorkflowID  string            `json:"workflow_id"`
}

// Service answers natural-language queries. It is safe for concurrent
// use; identical queries in flight at the same time share one answer.
type Service struct {
	reasoner  Reasoner
	fallback  Reasoner
	executor  Executor
	catalogue Cataloguer

	cache    cache.Cache
	ttl      time.Duration
	logs     query.LogStore
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
}

// NewService creates a query service.
func NewService(reasoner Reasoner, executor Executor, catalogue Cataloguer, opts ...Option) *Service {
	s := &Service{
		reasoner:  reasoner,
		executor:  executor,
		catalogue: catalogue,
		cache:     cache.Nop{},
		ttl:       5 * time.Minute,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer answers q. It returns an error when q is rejected by validation
// or ctx ends first; every other failure is reported in the answer's
// record.
//
// Identical queries in flight share one pipeline run. The shared work is
// detached from every caller's context, so a caller that gives up only
// discards its own copy of the answer.
func (s *Service) Answer(ctx context.Context, q string) (*Answer, error) {
	q, err := query.Validate(q)
	if err != nil {
		return nil, err
	}

	start := s.now()
	qid := id.NewQueryID()
	ch := s.group.DoChan(query.CacheKey(q), func() (any, error) {
		return s.answer(context.WithoutCancel(ctx), q, qid, reporter{now: s.now}), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		shared := r.Val.(*Answer)
		ans := *shared
		if shared.Record != nil {
			rec := *shared.Record
			ans.Record = &rec
		}
		if ans.QueryID != qid {
			// Joined another caller's run: log under our own id.
			ans.QueryID = qid
			log := s.logger.With(slog.String("query_id", qid.String()))
			s.finish(ctx, q, &ans, start, shared.status, log)
		}
		return &ans, nil
	}
}

// AnswerStream answers q like Answer, reporting each stage to progress.
// Streamed queries are not collapsed with concurrent identical ones.
func (s *Service) AnswerStream(ctx context.Context, q string, progress ProgressFunc) (*Answer, error) {
	rep := reporter{fn: progress, now: s.now}
	q, err := query.Validate(q)
	if err != nil {
		rep.send(StepParseQuery, ProgressFailed, 0, err.Error(), nil)
		return nil, err
	}
	return s.answer(ctx, q, id.NewQueryID(), rep), nil
}

func (s *Service) answer(ctx context.Context, q string, qid id.QueryID, rep reporter) *Answer {
	start := s.now()
	log := s.logger.With(slog.String("query_id", qid.String()))
	ctx = dispatch.WithCorrelationID(ctx, qid.String())

	key := query.CacheKey(q)
	if hit, ok := s.cached(ctx, key, log); ok {
		ans := &Answer{
			QueryID:     qid,
			Record:      hit.Record,
			ContainerID: hit.ContainerID,
			Intent:      hit.Intent,
			WorkflowID:  hit.WorkflowID,
			Cached:      true,
		}
		s.finish(ctx, q, ans, start, query.StatusSuccess, log)
		rep.send(StepFormatResponse, ProgressCompleted, 100, "Response ready (cached)", ans.Record)
		return ans
	}

	rep.send(StepParseQuery, ProgressInProgress, 20, "Analyzing query", nil)
	plan, err := s.plan(ctx, q, log)
	if err != nil {
		rep.send(StepParseQuery, ProgressFailed, 20, err.Error(), nil)
		ans := &Answer{QueryID: qid, Record: errorRecord("I could not process your query right now. Please try again.", err.Error())}
		s.finish(ctx, q, ans, start, query.StatusFailed, log)
		return ans
	}
	rep.send(StepParseQuery, ProgressCompleted, 30, "Query analyzed", nil)

	rep.send(StepExtractEntities, ProgressInProgress, 35, "Extracting container information", nil)
	if plan.ContainerID == "" {
		rep.send(StepExtractEntities, ProgressFailed, 35, "Could not find container ID", nil)
		rec := errorRecord(sanitize.MissingContainerID, "no container number found in query")
		rec.Intent = container.Ptr(plan.Intent.String())
		ans := &Answer{QueryID: qid, Record: rec, Intent: plan.Intent}
		s.finish(ctx, q, ans, start, query.StatusFailed, log)
		return ans
	}
	rep.send(StepExtractEntities, ProgressCompleted, 45, "Found container: "+plan.ContainerID,
		map[string]string{"container_id": plan.ContainerID})

	rep.send(StepClassifyIntent, ProgressInProgress, 50, "Understanding query intent", nil)
	rep.send(StepClassifyIntent, ProgressCompleted, 55, "Intent: "+plan.Intent.String(),
		map[string]string{"intent": plan.Intent.String()})

	tool := plan.CapabilityName()
	rep.send(StepSelectTool, ProgressInProgress, 60, "Selecting appropriate tool", nil)
	rep.send(StepSelectTool, ProgressCompleted, 65, "Tool selected: "+tool, map[string]string{"tool": tool})

	rep.send(StepTriggerWorkflow, ProgressInProgress, 70, "Starting data collection workflow", nil)
	params := map[string]string{capability.ParamContainerID: plan.ContainerID}
	res, err := s.executor.Execute(ctx, tool, params)
	if err != nil {
		log.Warn("dispatch rejected", slog.String("capability", tool), slog.String("error", err.Error()))
		rep.send(StepTriggerWorkflow, ProgressFailed, 70, err.Error(), nil)
		rec := errorRecord(fmt.Sprintf("I could not look up container %s: %v", plan.ContainerID, err), err.Error())
		rec.ContainerID = container.Ptr(plan.ContainerID)
		rec.Intent = container.Ptr(plan.Intent.String())
		rec.ToolsUsed = []container.ToolUsage{usage(tool, params, false)}
		ans := &Answer{QueryID: qid, Record: rec, ContainerID: plan.ContainerID, Intent: plan.Intent}
		s.finish(ctx, q, ans, start, query.StatusFailed, log)
		return ans
	}
	status := ProgressCompleted
	if !res.OK() {
		status = ProgressFailed
	}
	rep.send(StepTriggerWorkflow, status, 95, "Workflow finished",
		map[string]any{"workflow_id": res.WorkflowID, "data": res.Data})

	rep.send(StepFormatResponse, ProgressInProgress, 97, "Formatting response", nil)
	rec := s.compose(ctx, Composition{Query: q, Plan: plan, Result: res}, log)
	rec.ToolsUsed = []container.ToolUsage{usage(tool, params, res.OK())}
	rec.QueryTimestamp = container.Ptr(start.UTC().Format(time.RFC3339))
	rec.DataSource = container.DataSource
	if rec.ContainerID == nil {
		rec.ContainerID = container.Ptr(res.ContainerID)
	}
	if rec.Intent == nil {
		rec.Intent = container.Ptr(plan.Intent.String())
	}
	if rec.ContainerData == nil && !rec.HasErrors {
		rec.ContainerData = res.Data
	}
	if !res.OK() && !rec.HasErrors {
		rec.HasErrors = true
		rec.ErrorMessage = container.Ptr(res.Error)
	}
	sanitize.Complete(rec)

	ans := &Answer{
		QueryID:     qid,
		Record:      rec,
		ContainerID: res.ContainerID,
		Intent:      plan.Intent,
		WorkflowID:  res.WorkflowID,
	}

	qs := query.StatusSuccess
	switch {
	case res.OK() && rec.HasErrors:
		qs = query.StatusPartialSuccess
	case !res.OK():
		qs = query.StatusFailed
	}
	if qs == query.StatusSuccess {
		s.store(ctx, key, ans, log)
	}
	s.finish(ctx, q, ans, start, qs, log)
	rep.send(StepFormatResponse, ProgressCompleted, 100, "Response ready", rec)
	return ans
}

func (s *Service) plan(ctx context.Context, q string, log *slog.Logger) (Plan, error) {
	cat := s.catalogue.Catalogue()
	plan, err := s.reasoner.Plan(ctx, q, cat)
	if err == nil {
		return plan, nil
	}
	if s.fallback == nil {
		return Plan{}, err
	}
	log.Warn("reasoner plan failed, using fallback", slog.String("error", err.Error()))
	return s.fallback.Plan(ctx, q, cat)
}

// compose asks the reasoner, then the fallback, for answer text and
// sanitizes it. It never fails.
func (s *Service) compose(ctx context.Context, c Composition, log *slog.Logger) *container.Record {
	text, err := s.reasoner.Compose(ctx, c)
	if err != nil && s.fallback != nil {
		log.Warn("reasoner compose failed, using fallback", slog.String("error", err.Error()))
		text, err = s.fallback.Compose(ctx, c)
	}
	if err != nil {
		log.Error("compose failed", slog.String("error", err.Error()))
		return sanitize.Failure("", err.Error())
	}
	return sanitize.Sanitize(text)
}

func (s *Service) cached(ctx context.Context, key string, log *slog.Logger) (*cachedAnswer, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("answer cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var hit cachedAnswer
	if err := json.Unmarshal(b, &hit); err != nil || hit.Record == nil {
		log.Warn("answer cache entry unreadable", slog.String("key", key))
		return nil, false
	}
	sanitize.Complete(hit.Record)
	return &hit, true
}

func (s *Service) store(ctx context.Context, key string, ans *Answer, log *slog.Logger) {
	b, err := json.Marshal(cachedAnswer{
		Record:      ans.Record,
		ContainerID: ans.ContainerID,
		Intent:      ans.Intent,
		WorkflowID:  ans.WorkflowID,
	})
	if err != nil {
		log.Warn("answer cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		log.Warn("answer cache write failed", slog.String("error", err.Error()))
	}
}

// finish stamps the response time and records the query log. Log
// failures never affect the answer.
func (s *Service) finish(ctx context.Context, q string, ans *Answer, start time.Time, status string, log *slog.Logger) {
	ans.status = status
	ans.ResponseTimeMS = s.now().Sub(start).Milliseconds()

	entry := &query.Log{
		ID:                 ans.QueryID,
		UserQuery:          q,
		ExtractedContainer: ans.ContainerID,
		Intent:             ans.Intent,
		ResponseTimeMS:     ans.ResponseTimeMS,
		Status:             status,
		WorkflowID:         ans.WorkflowID,
		Cached:             ans.Cached,
		CreatedAt:          s.now().UTC(),
	}
	if ans.Record != nil {
		if ans.Record.HasErrors {
			entry.ErrorMessage = ans.Record.ErrorText()
		}
		if b, err := json.Marshal(ans.Record); err == nil {
			entry.Result = b
		}
	}

	if s.logs != nil {
		if err := s.logs.AppendQueryLog(context.WithoutCancel(ctx), entry); err != nil {
			log.Warn("query log write failed", slog.String("error", err.Error()))
		}
	}
	if s.observer != nil {
		s.observer.QueryAnswered(ctx, entry)
	}

	log.Info("query answered",
		slog.String("status", status),
		slog.String("container_id", ans.ContainerID),
		slog.Bool("cached", ans.Cached),
		slog.Int64("response_time_ms", ans.ResponseTimeMS),
	)
}

func errorRecord(message, detail string) *container.Record {
	return &container.Record{
		Message:      message,
		DataSource:   container.DataSource,
		HasErrors:    true,
		ErrorMessage: container.Ptr(detail),
	}
}

func usage(tool string, params map[string]string, ok bool) container.ToolUsage {
	p := make(map[string]any, len(params))
	for k, v := range params {
		p[k] = v
	}
	return container.ToolUsage{ToolName: tool, Parameters: p, Success: ok}
}
