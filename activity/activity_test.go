package activity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/activity"
	"github.com/xraph/berth/backoff"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/extract"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/session/fixture"
	"github.com/xraph/berth/store/memory"
)

var fixedNow = time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	store    *memory.Store
	sessions *fixture.Provider
	orch     *pipeline.Orchestrator
}

func newEnv(t *testing.T, maxAge time.Duration, opts ...fixture.Option) *env {
	t.Helper()
	st := memory.New(memory.WithClock(func() time.Time { return fixedNow }))
	sessions := fixture.New(opts...)
	table := activity.NewTable(activity.Deps{
		Raws:      st,
		Records:   st,
		Sessions:  sessions,
		RawMaxAge: maxAge,
		Now:       func() time.Time { return fixedNow },
		Logger:    testLogger(),
	})

	policies := make(pipeline.Policies)
	for _, step := range pipeline.Steps() {
		policies[step] = pipeline.Policy{
			Timeout: 2 * time.Second,
			Retry:   backoff.Policy{Initial: time.Millisecond, Max: time.Millisecond, Coefficient: 1, MaxAttempts: 3},
		}
	}

	orch, err := pipeline.New(table,
		pipeline.WithLogger(testLogger()),
		pipeline.WithPolicies(policies),
		pipeline.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(orch.Wait)
	return &env{store: st, sessions: sessions, orch: orch}
}

func (e *env) run(containerID string, op container.Operation) *pipeline.Result {
	res := e.orch.Run(context.Background(), pipeline.Request{ContainerID: containerID, Operation: op})
	e.orch.Wait()
	return res
}

func TestMissThenHit(t *testing.T) {
	e := newEnv(t, 0)

	first := e.run("MSDU4234521", container.OpFullInfo)
	if !first.OK() {
		t.Fatalf("first run failed: %s", first.Error)
	}
	if first.CacheHit {
		t.Error("first run should miss the cache")
	}
	if got := first.Data.Status; got != container.StatusAvailable {
		t.Errorf("status = %q, want %q", got, container.StatusAvailable)
	}
	if first.Data.Location == nil || *first.Data.Location != "Yard 21" {
		t.Errorf("location = %v, want Yard 21", first.Data.Location)
	}

	raw, err := e.store.GetRawDocument(context.Background(), "MSDU4234521")
	if err != nil {
		t.Fatalf("raw document not stored: %v", err)
	}
	if len(raw.ParsedJSON) == 0 {
		t.Error("expected parsed row alongside the raw document")
	}

	second := e.run("MSDU4234521", container.OpAvailability)
	if !second.OK() {
		t.Fatalf("second run failed: %s", second.Error)
	}
	if !second.CacheHit {
		t.Error("second run should hit the cache")
	}
	if e.sessions.Opened() != 1 {
		t.Errorf("sessions opened = %d, want 1", e.sessions.Opened())
	}

	n, _ := e.store.CountSnapshots(context.Background())
	if n != 1 {
		t.Errorf("snapshots = %d, want 1", n)
	}
}

func TestStaleDocumentIsMiss(t *testing.T) {
	e := newEnv(t, time.Hour)
	old := &container.RawDocument{
		ContainerID: "MSDU4234521",
		Operation:   container.OpFullInfo,
		Content:     "<html></html>",
		Status:      container.RawSuccess,
		ScrapedAt:   fixedNow.Add(-2 * time.Hour),
	}
	if err := e.store.UpsertRawDocument(context.Background(), old); err != nil {
		t.Fatal(err)
	}

	res := e.run("MSDU4234521", container.OpFullInfo)
	if !res.OK() {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.CacheHit {
		t.Error("stale document should not be a hit")
	}
}

func TestFailedDocumentIsMiss(t *testing.T) {
	e := newEnv(t, 0)
	_ = e.store.UpsertRawDocument(context.Background(), &container.RawDocument{
		ContainerID: "MSDU4234521",
		Status:      container.RawFailed,
		ScrapedAt:   fixedNow,
	})
	if res := e.run("MSDU4234521", container.OpFullInfo); res.CacheHit {
		t.Error("failed document should not be a hit")
	}
}

func TestUnknownContainerIsSchemaError(t *testing.T) {
	e := newEnv(t, 0)
	res := e.run("ZZZZ0000000", container.OpFullInfo)
	if res.OK() {
		t.Fatal("expected failure for a container without results")
	}
	if res.ErrorKind != pipeline.KindSchema {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindSchema)
	}
	n, _ := e.store.CountSnapshots(context.Background())
	if n != 0 {
		t.Errorf("snapshots = %d, want 0", n)
	}
}

func TestEmptyResultIsNotCached(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	first := e.run("WXYZ7654321", container.OpLocation)
	if first.ErrorKind != pipeline.KindSchema {
		t.Fatalf("first kind = %q, want %q", first.ErrorKind, pipeline.KindSchema)
	}
	raw, err := e.store.GetRawDocument(ctx, "WXYZ7654321")
	if err != nil {
		t.Fatalf("GetRawDocument: %v", err)
	}
	if raw.Status != container.RawFailed || raw.ErrorMessage == "" {
		t.Errorf("raw status = %q (%q), want failed with a message", raw.Status, raw.ErrorMessage)
	}

	// The container shows up at the terminal.
	e.sessions.Put(fixture.Row{
		extract.ColContainerNumber: "WXYZ7654321",
		extract.ColAvailable:       "Yes",
		extract.ColLocation:        "Row 7",
	})

	second := e.run("WXYZ7654321", container.OpLocation)
	if !second.OK() {
		t.Fatalf("second run failed: %s (%s)", second.Error, second.ErrorKind)
	}
	if second.CacheHit {
		t.Error("second run should not replay the empty page")
	}
	if got := e.sessions.Opened(); got != 2 {
		t.Errorf("sessions opened = %d, want 2", got)
	}
	if second.Data.Location == nil || *second.Data.Location != "Row 7" {
		t.Errorf("Location = %v, want Row 7", second.Data.Location)
	}

	raw, _ = e.store.GetRawDocument(ctx, "WXYZ7654321")
	if raw.Status != container.RawSuccess {
		t.Errorf("raw status = %q, want %q", raw.Status, container.RawSuccess)
	}
}

func TestMismatchedRowFails(t *testing.T) {
	// The terminal answers for TEST1234567 with another container's row.
	e := newEnv(t, 0, fixture.WithRow(fixture.Row{
		extract.ColContainerNumber: "TEST1234567",
		extract.ColAvailable:       "Yes",
	}))
	doc, _ := fixture.Render(fixture.Row{
		extract.ColContainerNumber: "OTHR7654321",
		extract.ColAvailable:       "Yes",
	})
	_ = e.store.UpsertRawDocument(context.Background(), &container.RawDocument{
		ContainerID: "TEST1234567",
		Content:     doc,
		Status:      container.RawSuccess,
		ScrapedAt:   fixedNow,
	})

	res := e.run("TEST1234567", container.OpAvailability)
	if res.ErrorKind != pipeline.KindMismatch {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindMismatch)
	}
}

func TestSearchRetriedAfterTransientFailure(t *testing.T) {
	e := newEnv(t, 0, fixture.WithFailures("MSMU8317127", 2))
	res := e.run("MSMU8317127", container.OpHolds)
	if !res.OK() {
		t.Fatalf("run failed: %s", res.Error)
	}
	for _, r := range res.Steps {
		if r.Step == pipeline.StepSearch && r.Attempts != 3 {
			t.Errorf("search attempts = %d, want 3", r.Attempts)
		}
	}
	if res.Data.HasHolds == nil || !*res.Data.HasHolds {
		t.Error("expected holds")
	}
	if res.Data.Status != container.StatusOnHold {
		t.Errorf("status = %q, want %q", res.Data.Status, container.StatusOnHold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		fields *container.Data
		want   pipeline.ErrorKind
	}{
		{"nil fields", nil, pipeline.KindSchema},
		{"missing number", &container.Data{Status: container.StatusAvailable}, pipeline.KindSchema},
		{"missing status", &container.Data{ContainerNumber: "MSDU4234521"}, pipeline.KindSchema},
		{"other container", &container.Data{ContainerNumber: "MSMU8317127", Status: "x"}, pipeline.KindMismatch},
		{"valid", &container.Data{ContainerNumber: "MSDU4234521", Status: container.StatusAvailable}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := activity.Validate{}.Execute(context.Background(), pipeline.StepContext{
				ContainerID: "MSDU4234521",
				Fields:      tt.fields,
			})
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if out.Record != tt.fields {
					t.Error("record should be the validated fields")
				}
				return
			}
			var se *pipeline.StepError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StepError", err)
			}
			if se.Kind != tt.want {
				t.Errorf("kind = %q, want %q", se.Kind, tt.want)
			}
		})
	}
}

func TestCacheProbeStoreError(t *testing.T) {
	table := activity.NewTable(activity.Deps{Raws: failingRaws{}})
	_, err := table[pipeline.StepCacheProbe].Execute(context.Background(), pipeline.StepContext{ContainerID: "MSDU4234521"})
	if err == nil || errors.Is(err, berth.ErrRawDocumentNotFound) {
		t.Errorf("err = %v, want a store error", err)
	}
}

type failingRaws struct{}

func (failingRaws) GetRawDocument(context.Context, string) (*container.RawDocument, error) {
	return nil, errors.New("connection reset")
}

func (failingRaws) UpsertRawDocument(context.Context, *container.RawDocument) error {
	return errors.New("connection reset")
}
