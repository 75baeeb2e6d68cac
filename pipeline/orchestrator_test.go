package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
)

func equalSteps(a, b []pipeline.Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNew_MissingExecutor(t *testing.T) {
	h := newHarness()
	table := h.table()
	delete(table, pipeline.StepValidate)

	if _, err := pipeline.New(table); err == nil {
		t.Fatal("expected error for missing validate executor")
	}
}

func TestRun_CacheMissOrder(t *testing.T) {
	for _, op := range container.Operations() {
		t.Run(op.String(), func(t *testing.T) {
			h := newHarness()
			o := newOrchestrator(t, h)

			req := request()
			req.Operation = op
			res := o.Run(context.Background(), req)
			o.Wait()

			if res.Status != pipeline.StatusSuccess {
				t.Fatalf("status = %q, want success (error %q)", res.Status, res.Error)
			}
			want := []pipeline.Step{
				pipeline.StepCacheProbe,
				pipeline.StepSessionAcquire,
				pipeline.StepSearch,
				pipeline.StepExtract,
				pipeline.StepValidate,
				pipeline.StepPersist,
			}
			if got := h.criticalOrder(); !equalSteps(got, want) {
				t.Errorf("order = %v, want %v", got, want)
			}
			if n := h.callsTo(pipeline.StepPersistRaw); n != 1 {
				t.Errorf("persist_raw calls = %d, want 1", n)
			}
			if res.CacheHit {
				t.Error("expected cache miss")
			}
			if res.Operation != op {
				t.Errorf("operation = %q, want %q", res.Operation, op)
			}
			if h.session.closeCount() != 1 {
				t.Errorf("session closed %d times, want 1", h.session.closeCount())
			}
		})
	}
}

func TestRun_CacheHitSkipsFetch(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepCacheProbe, func(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{Raw: &container.RawDocument{ContainerID: sc.ContainerID, Content: "cached"}}, nil
	})

	var extracted string
	h.set(pipeline.StepExtract, func(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
		extracted = sc.Raw.Content
		return pipeline.Output{Fields: &container.Data{ContainerNumber: sc.ContainerID, Status: container.StatusAvailable}}, nil
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success (error %q)", res.Status, res.Error)
	}
	want := []pipeline.Step{
		pipeline.StepCacheProbe,
		pipeline.StepExtract,
		pipeline.StepValidate,
		pipeline.StepPersist,
	}
	if got := h.criticalOrder(); !equalSteps(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if h.callsTo(pipeline.StepPersistRaw) != 0 {
		t.Error("persist_raw ran on a cache hit")
	}
	if !res.CacheHit {
		t.Error("expected CacheHit")
	}
	if extracted != "cached" {
		t.Errorf("extract saw %q, want cached document", extracted)
	}

	skipped := 0
	for _, r := range res.Steps {
		if r.Skipped {
			skipped++
		}
	}
	if skipped != 3 {
		t.Errorf("skipped reports = %d, want 3", skipped)
	}
}

func TestRun_CacheProbeErrorIsMiss(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepCacheProbe, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errors.New("cache down")
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if h.callsTo(pipeline.StepCacheProbe) != 1 {
		t.Errorf("cache_probe calls = %d, want 1", h.callsTo(pipeline.StepCacheProbe))
	}
	if h.callsTo(pipeline.StepSearch) != 1 {
		t.Error("expected search to run after a probe failure")
	}
	if res.CacheHit {
		t.Error("expected cache miss")
	}
}

func TestRun_CachedDocumentForOtherContainerIsMiss(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepCacheProbe, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{Raw: &container.RawDocument{ContainerID: "ABCD7654321", Content: "stale"}}, nil
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if res.CacheHit {
		t.Error("document stored under another id must not count as a hit")
	}
	if h.callsTo(pipeline.StepSearch) != 1 {
		t.Error("expected search to run")
	}
	if !res.OK() {
		t.Fatalf("status = %q, want success", res.Status)
	}
}

func TestRun_RetryBound(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepSearch, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errTerminal
	})
	em := &recordingEmitter{}
	o := newOrchestrator(t, h, pipeline.WithEmitter(em))

	res := o.Run(context.Background(), request())

	if got := h.callsTo(pipeline.StepSearch); got != 3 {
		t.Errorf("search calls = %d, want 3", got)
	}
	if res.Status != pipeline.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "terminal unreachable") {
		t.Errorf("error = %q, want last error message", res.Error)
	}
	if res.ErrorKind != pipeline.KindFailure {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindFailure)
	}
	if res.Operation != container.OpLocation {
		t.Errorf("operation = %q, want %q", res.Operation, container.OpLocation)
	}
	if h.callsTo(pipeline.StepExtract) != 0 {
		t.Error("extract ran after search failed")
	}
	if len(em.retrying) != 2 {
		t.Errorf("retrying events = %d, want 2", len(em.retrying))
	}
	if h.session.closeCount() != 1 {
		t.Error("session must be closed after a failed search")
	}

	last := res.Steps[len(res.Steps)-1]
	if last.Step != pipeline.StepSearch || last.Attempts != 3 {
		t.Errorf("last report = %+v, want search with 3 attempts", last)
	}
}

func TestRun_RetryThenSucceed(t *testing.T) {
	h := newHarness()
	var n atomic.Int32
	h.set(pipeline.StepSessionAcquire, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		if n.Add(1) < 3 {
			return pipeline.Output{}, errors.New("browser busy")
		}
		return pipeline.Output{Session: h.session}, nil
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success (error %q)", res.Status, res.Error)
	}
	if got := h.callsTo(pipeline.StepSessionAcquire); got != 3 {
		t.Errorf("session_acquire calls = %d, want 3", got)
	}
}

func TestRun_BackoffDelays(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepSearch, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errTerminal
	})

	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	o := newOrchestrator(t, h, pipeline.WithSleep(sleep))

	o.Run(context.Background(), request())

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

// fixedDelay is a backoff strategy with one delay for every retry.
type fixedDelay time.Duration

func (f fixedDelay) Delay(int) time.Duration { return time.Duration(f) }

func TestRun_BackoffStrategyOverridesSchedule(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepSearch, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errTerminal
	})

	policies := fastPolicies(3)
	pol := policies[pipeline.StepSearch]
	pol.Backoff = fixedDelay(7 * time.Millisecond)
	policies[pipeline.StepSearch] = pol

	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	o := newOrchestrator(t, h, pipeline.WithPolicies(policies), pipeline.WithSleep(sleep))

	o.Run(context.Background(), request())

	if got := h.callsTo(pipeline.StepSearch); got != 3 {
		t.Errorf("search calls = %d, want 3", got)
	}
	want := []time.Duration{7 * time.Millisecond, 7 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRun_SchemaErrorNotRetried(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepValidate, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, pipeline.Schema("container_number is required")
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if h.callsTo(pipeline.StepValidate) != 1 {
		t.Errorf("validate calls = %d, want 1", h.callsTo(pipeline.StepValidate))
	}
	if res.Status != pipeline.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if res.ErrorKind != pipeline.KindSchema {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindSchema)
	}
	if h.callsTo(pipeline.StepPersist) != 0 {
		t.Error("persist ran after validation failed")
	}
}

func TestRun_MismatchRejected(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepExtract, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{Fields: &container.Data{
			ContainerNumber: "MSDU7654321",
			Status:          container.StatusAvailable,
			Location:        container.Ptr("Y-123"),
		}}, nil
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if res.Status != pipeline.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if res.ErrorKind != pipeline.KindMismatch {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindMismatch)
	}
	if h.callsTo(pipeline.StepValidate) != 1 {
		t.Errorf("validate calls = %d, want 1", h.callsTo(pipeline.StepValidate))
	}
	if res.Data != nil {
		t.Error("failed result must not carry data")
	}
}

func TestRun_PersistFailureStillSuccess(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepPersist, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errors.New("disk full")
	})
	em := &recordingEmitter{}
	o := newOrchestrator(t, h, pipeline.WithEmitter(em))

	res := o.Run(context.Background(), request())
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if h.callsTo(pipeline.StepPersist) != 1 {
		t.Errorf("persist calls = %d, want 1", h.callsTo(pipeline.StepPersist))
	}
	if res.Data == nil || res.Data.Location == nil || *res.Data.Location != "Y-123" {
		t.Errorf("data = %+v, want extracted record", res.Data)
	}
	if em.finalRun == nil || em.finalRun.PersistError != "disk full" {
		t.Errorf("run persist error not recorded: %+v", em.finalRun)
	}
	if em.finalRun.State != pipeline.RunStateCompleted {
		t.Errorf("run state = %q, want completed", em.finalRun.State)
	}
}

func TestRun_PersistRawFailureIgnored(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepPersistRaw, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{}, errors.New("store offline")
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if h.callsTo(pipeline.StepPersistRaw) != 1 {
		t.Errorf("persist_raw calls = %d, want 1", h.callsTo(pipeline.StepPersistRaw))
	}
}

func TestRun_PersistRawSurvivesCallerCancel(t *testing.T) {
	h := newHarness()
	release := make(chan struct{})
	var sawCancel atomic.Bool
	h.set(pipeline.StepPersistRaw, func(ctx context.Context, _ pipeline.StepContext) (pipeline.Output, error) {
		<-release
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return pipeline.Output{}, nil
	})
	o := newOrchestrator(t, h, pipeline.WithPolicy(pipeline.StepPersistRaw, pipeline.Policy{}))

	ctx, cancel := context.WithCancel(context.Background())
	res := o.Run(ctx, request())
	cancel()
	close(release)
	o.Wait()

	if !res.OK() {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if sawCancel.Load() {
		t.Error("persist_raw context was cancelled with the caller")
	}
}

func TestRun_PanicRecovered(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepExtract, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		panic("bad markup")
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if res.Status != pipeline.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "panic in step extract") {
		t.Errorf("error = %q, want panic message", res.Error)
	}
	if got := h.callsTo(pipeline.StepExtract); got != 3 {
		t.Errorf("extract calls = %d, want 3", got)
	}
}

func TestRun_StepTimeout(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepSearch, func(ctx context.Context, _ pipeline.StepContext) (pipeline.Output, error) {
		<-ctx.Done()
		return pipeline.Output{}, ctx.Err()
	})
	pol := fastPolicies(2)[pipeline.StepSearch]
	pol.Timeout = 10 * time.Millisecond
	o := newOrchestrator(t, h, pipeline.WithPolicy(pipeline.StepSearch, pol))

	res := o.Run(context.Background(), request())

	if res.ErrorKind != pipeline.KindTimeout {
		t.Errorf("kind = %q, want %q", res.ErrorKind, pipeline.KindTimeout)
	}
	if got := h.callsTo(pipeline.StepSearch); got != 2 {
		t.Errorf("search calls = %d, want 2", got)
	}
}

func TestRun_ForeignOutputRejected(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepExtract, func(context.Context, pipeline.StepContext) (pipeline.Output, error) {
		return pipeline.Output{Raw: &container.RawDocument{ContainerID: testContainer}}, nil
	})
	o := newOrchestrator(t, h)

	res := o.Run(context.Background(), request())
	o.Wait()

	if res.Status != pipeline.StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "may not set raw") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestRun_ExecutorMutationDoesNotLeak(t *testing.T) {
	h := newHarness()
	h.set(pipeline.StepValidate, func(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
		rec := sc.Fields.Clone()
		sc.Fields.Location = container.Ptr("tampered")
		return pipeline.Output{Record: rec}, nil
	})
	var seen string
	h.set(pipeline.StepPersist, func(_ context.Context, sc pipeline.StepContext) (pipeline.Output, error) {
		seen = *sc.Fields.Location
		return pipeline.Output{}, nil
	})
	o := newOrchestrator(t, h)

	o.Run(context.Background(), request())
	o.Wait()

	if seen != "Y-123" {
		t.Errorf("persist saw location %q, want Y-123", seen)
	}
}

func TestRun_MintsWorkflowID(t *testing.T) {
	h := newHarness()
	o := newOrchestrator(t, h)

	req := pipeline.Request{ContainerID: testContainer, Operation: container.OpLocation}
	a := o.Run(context.Background(), req)
	b := o.Run(context.Background(), req)
	o.Wait()

	if a.WorkflowID.IsNil() || b.WorkflowID.IsNil() {
		t.Fatal("expected minted workflow ids")
	}
	if a.WorkflowID == b.WorkflowID {
		t.Error("workflow ids must differ between runs")
	}
}

func TestRun_EmitsLifecycle(t *testing.T) {
	h := newHarness()
	em := &recordingEmitter{}
	o := newOrchestrator(t, h, pipeline.WithEmitter(em))

	res := o.Run(context.Background(), request())
	o.Wait()

	if em.finalRun == nil || em.finalRun.WorkflowID != res.WorkflowID {
		t.Fatal("expected run completed event for this workflow")
	}
	if em.finalRun.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.completed) != 7 {
		t.Errorf("step completed events = %d, want 7", len(em.completed))
	}
}
