package agent_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/xraph/berth"
	"github.com/xraph/berth/activity"
	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/cache"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
	"github.com/xraph/berth/sanitize"
	"github.com/xraph/berth/session/fixture"
	"github.com/xraph/berth/store/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	store    *memory.Store
	sessions *fixture.Provider
	cache    *cache.Memory
	registry *capability.Registry
	service  *agent.Service
}

type envOpt func(*envConfig)

type envConfig struct {
	reasoner agent.Reasoner
	extra    []agent.Option
}

func withReasoner(r agent.Reasoner) envOpt {
	return func(c *envConfig) { c.reasoner = r }
}

func withOptions(opts ...agent.Option) envOpt {
	return func(c *envConfig) { c.extra = append(c.extra, opts...) }
}

func newEnv(t *testing.T, opts ...envOpt) *env {
	t.Helper()
	cfg := envConfig{reasoner: agent.Rules{}}
	for _, o := range opts {
		o(&cfg)
	}

	st := memory.New(memory.WithClock(func() time.Time { return fixedNow }))
	sessions := fixture.New()
	table := activity.NewTable(activity.Deps{
		Raws:     st,
		Records:  st,
		Sessions: sessions,
		Now:      func() time.Time { return fixedNow },
		Logger:   testLogger(),
	})
	orch, err := pipeline.New(table,
		pipeline.WithLogger(testLogger()),
		pipeline.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(orch.Wait)

	reg := capability.NewRegistry()
	if err := capability.RegisterBuiltins(reg, orch); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	mc := cache.NewMemory()
	svcOpts := append([]agent.Option{
		agent.WithLogger(testLogger()),
		agent.WithCache(mc, time.Minute),
		agent.WithQueryLogs(st),
	}, cfg.extra...)

	svc := agent.NewService(cfg.reasoner, dispatch.New(reg, dispatch.WithLogger(testLogger())), reg, svcOpts...)
	return &env{store: st, sessions: sessions, cache: mc, registry: reg, service: svc}
}

func (e *env) logs(t *testing.T) []*query.Log {
	t.Helper()
	logs, err := e.store.ListQueryLogs(context.Background(), query.LogOpts{})
	if err != nil {
		t.Fatalf("ListQueryLogs: %v", err)
	}
	return logs
}

func TestAnswer_WhereIsContainer(t *testing.T) {
	e := newEnv(t)

	ans, err := e.service.Answer(context.Background(), "Where is ABCD1234567?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	rec := ans.Record
	if rec.HasErrors {
		t.Fatalf("HasErrors = true: %s", rec.ErrorText())
	}
	if ans.Intent != query.IntentGetLocation {
		t.Errorf("Intent = %q, want %q", ans.Intent, query.IntentGetLocation)
	}
	if rec.ContainerData == nil || rec.ContainerData.Location == nil {
		t.Fatalf("ContainerData = %+v, want a location", rec.ContainerData)
	}
	if got := *rec.ContainerData.Location; got != "Block B4 Row 12" {
		t.Errorf("Location = %q, want %q", got, "Block B4 Row 12")
	}
	if want := "Container ABCD1234567 is at location Block B4 Row 12."; rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
	if len(rec.ToolsUsed) != 1 || rec.ToolsUsed[0].ToolName != capability.GetContainerLocation || !rec.ToolsUsed[0].Success {
		t.Errorf("ToolsUsed = %+v, want one successful %s", rec.ToolsUsed, capability.GetContainerLocation)
	}
	if rec.DataSource != container.DataSource {
		t.Errorf("DataSource = %q, want %q", rec.DataSource, container.DataSource)
	}
	if rec.QueryTimestamp == nil {
		t.Error("QueryTimestamp should be set")
	}
	if ans.WorkflowID == "" {
		t.Error("WorkflowID should be set")
	}

	logs := e.logs(t)
	if len(logs) != 1 {
		t.Fatalf("query logs = %d, want 1", len(logs))
	}
	if logs[0].Status != query.StatusSuccess {
		t.Errorf("log status = %q, want %q", logs[0].Status, query.StatusSuccess)
	}
	if logs[0].ExtractedContainer != "ABCD1234567" {
		t.Errorf("log container = %q, want ABCD1234567", logs[0].ExtractedContainer)
	}
}

func TestAnswer_SecondQueryIsCached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.service.Answer(ctx, "Is MSDU4234521 available?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if first.Cached {
		t.Error("first answer should not be cached")
	}

	second, err := e.service.Answer(ctx, "  IS msdu4234521 AVAILABLE?  ")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !second.Cached {
		t.Error("second answer should be cached")
	}
	if second.Record.Message != first.Record.Message {
		t.Errorf("cached Message = %q, want %q", second.Record.Message, first.Record.Message)
	}
	if got := e.sessions.Opened(); got != 1 {
		t.Errorf("sessions opened = %d, want 1", got)
	}

	logs := e.logs(t)
	if len(logs) != 2 || !logs[0].Cached {
		t.Errorf("latest log should be the cached answer, got %d logs", len(logs))
	}
}

func TestAnswer_InvalidQuery(t *testing.T) {
	e := newEnv(t)

	for _, q := range []string{"", "   ", "<script>alert(1)</script> MSDU4234521"} {
		_, err := e.service.Answer(context.Background(), q)
		if !errors.Is(err, berth.ErrInvalidQuery) {
			t.Errorf("Answer(%q) err = %v, want ErrInvalidQuery", q, err)
		}
	}
	if n := len(e.logs(t)); n != 0 {
		t.Errorf("query logs = %d, want 0", n)
	}
}

func TestAnswer_NoContainerID(t *testing.T) {
	e := newEnv(t)

	ans, err := e.service.Answer(context.Background(), "Where is my container?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !ans.Record.HasErrors {
		t.Error("HasErrors = false, want true")
	}
	if ans.Record.Message != sanitize.MissingContainerID {
		t.Errorf("Message = %q, want %q", ans.Record.Message, sanitize.MissingContainerID)
	}
	if got := e.sessions.Opened(); got != 0 {
		t.Errorf("sessions opened = %d, want 0", got)
	}

	logs := e.logs(t)
	if len(logs) != 1 || logs[0].Status != query.StatusFailed {
		t.Errorf("logs = %+v, want one failed entry", logs)
	}
}

func TestAnswer_PipelineFailureIsNotCached(t *testing.T) {
	e := newEnv(t)

	ans, err := e.service.Answer(context.Background(), "Any holds on ZZZZ7654321?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !ans.Record.HasErrors {
		t.Fatal("HasErrors = false, want true")
	}
	if ans.Record.Message == "" {
		t.Error("Message should never be empty")
	}
	if len(ans.Record.ToolsUsed) != 1 || ans.Record.ToolsUsed[0].Success {
		t.Errorf("ToolsUsed = %+v, want one failed use", ans.Record.ToolsUsed)
	}
	if e.cache.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", e.cache.Len())
	}
}

// failingReasoner fails every call.
type failingReasoner struct{}

func (failingReasoner) Plan(context.Context, string, []capability.CatalogueEntry) (agent.Plan, error) {
	return agent.Plan{}, berth.ErrReasonerUnavailable
}

func (failingReasoner) Compose(context.Context, agent.Composition) (string, error) {
	return "", berth.ErrReasonerUnavailable
}

// gatedReasoner holds Plan until release is closed or ctx ends.
type gatedReasoner struct {
	agent.Rules
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedReasoner() *gatedReasoner {
	return &gatedReasoner{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedReasoner) Plan(ctx context.Context, q string, cat []capability.CatalogueEntry) (agent.Plan, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return agent.Plan{}, ctx.Err()
	}
	return g.Rules.Plan(ctx, q, cat)
}

func TestAnswer_CancelledCallerDoesNotFailJoinedCallers(t *testing.T) {
	gate := newGatedReasoner()
	e := newEnv(t, withReasoner(gate))
	const q = "Where is ABCD1234567?"

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := e.service.Answer(ctxA, q)
		errA <- err
	}()
	<-gate.entered

	type outcome struct {
		ans *agent.Answer
		err error
	}
	joined := make(chan outcome, 2)
	for range 2 {
		go func() {
			ans, err := e.service.Answer(context.Background(), q)
			joined <- outcome{ans, err}
		}()
	}
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(gate.release)

	b, c := <-joined, <-joined
	for _, o := range []outcome{b, c} {
		if o.err != nil {
			t.Fatalf("joined caller err = %v", o.err)
		}
		if o.ans.Record.HasErrors {
			t.Errorf("joined caller HasErrors = true: %s", o.ans.Record.ErrorText())
		}
	}
	if b.ans.QueryID == c.ans.QueryID {
		t.Errorf("joined callers share QueryID %s", b.ans.QueryID)
	}
	if b.ans.Record == c.ans.Record {
		t.Error("joined callers share one *Record")
	}
	if got := e.sessions.Opened(); got != 1 {
		t.Errorf("sessions opened = %d, want 1", got)
	}
	if n := len(e.logs(t)); n != 3 {
		t.Errorf("query logs = %d, want 3", n)
	}
}

func TestAnswer_FallbackReasoner(t *testing.T) {
	e := newEnv(t, withReasoner(failingReasoner{}), withOptions(agent.WithFallback(agent.Rules{})))

	ans, err := e.service.Answer(context.Background(), "When is the last free day for ABCD1234567?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Record.HasErrors {
		t.Fatalf("HasErrors = true: %s", ans.Record.ErrorText())
	}
	if ans.Intent != query.IntentGetLastFreeDay {
		t.Errorf("Intent = %q, want %q", ans.Intent, query.IntentGetLastFreeDay)
	}
	if d := ans.Record.ContainerData; d == nil || d.LastFreeDay == nil || *d.LastFreeDay != "2024-12-02" {
		t.Errorf("ContainerData = %+v, want last free day 2024-12-02", d)
	}
}

func TestAnswer_ReasonerFailureWithoutFallback(t *testing.T) {
	e := newEnv(t, withReasoner(failingReasoner{}))

	ans, err := e.service.Answer(context.Background(), "Where is ABCD1234567?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !ans.Record.HasErrors || ans.Record.Message == "" {
		t.Errorf("Record = %+v, want an error record with a message", ans.Record)
	}
}

// recordingObserver captures answered query logs.
type recordingObserver struct {
	mu   sync.Mutex
	logs []*query.Log
}

func (o *recordingObserver) QueryAnswered(_ context.Context, l *query.Log) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logs = append(o.logs, l)
}

func TestAnswer_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := newEnv(t, withOptions(agent.WithObserver(obs)))

	if _, err := e.service.Answer(context.Background(), "Holds on MSMU8317127?"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(obs.logs) != 1 {
		t.Fatalf("observed = %d, want 1", len(obs.logs))
	}
	if obs.logs[0].Intent != query.IntentCheckHolds {
		t.Errorf("Intent = %q, want %q", obs.logs[0].Intent, query.IntentCheckHolds)
	}
}

func TestAnswerStream_ReportsStagesInOrder(t *testing.T) {
	e := newEnv(t)

	var updates []agent.Progress
	ans, err := e.service.AnswerStream(context.Background(), "Is MSDU4234521 ready for pickup?", func(p agent.Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("AnswerStream: %v", err)
	}
	if ans.Record.HasErrors {
		t.Fatalf("HasErrors = true: %s", ans.Record.ErrorText())
	}

	var completed []agent.ProgressStep
	last := -1
	for _, u := range updates {
		if u.Percent < last {
			t.Errorf("progress went backwards: %d after %d", u.Percent, last)
		}
		last = u.Percent
		if u.Status == agent.ProgressCompleted {
			completed = append(completed, u.Step)
		}
	}
	want := []agent.ProgressStep{
		agent.StepParseQuery,
		agent.StepExtractEntities,
		agent.StepClassifyIntent,
		agent.StepSelectTool,
		agent.StepTriggerWorkflow,
		agent.StepFormatResponse,
	}
	if len(completed) != len(want) {
		t.Fatalf("completed steps = %v, want %v", completed, want)
	}
	for i := range want {
		if completed[i] != want[i] {
			t.Errorf("completed[%d] = %q, want %q", i, completed[i], want[i])
		}
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestAnswerStream_InvalidQueryReportsFailure(t *testing.T) {
	e := newEnv(t)

	var updates []agent.Progress
	_, err := e.service.AnswerStream(context.Background(), "", func(p agent.Progress) { updates = append(updates, p) })
	if !errors.Is(err, berth.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
	if len(updates) != 1 || updates[0].Status != agent.ProgressFailed {
		t.Errorf("updates = %+v, want one failure", updates)
	}
}
