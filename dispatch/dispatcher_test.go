package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/activity"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/session/fixture"
	"github.com/xraph/berth/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingRunner captures requests and replies with a canned result.
type recordingRunner struct {
	mu     sync.Mutex
	reqs   []pipeline.Request
	status pipeline.Status
}

func (r *recordingRunner) Run(_ context.Context, req pipeline.Request) *pipeline.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	res := &pipeline.Result{
		Status:      r.status,
		WorkflowID:  req.WorkflowID,
		ContainerID: req.ContainerID,
		Operation:   req.Operation,
	}
	if r.status == pipeline.StatusFailed {
		res.Error = "search failure: terminal unreachable"
		res.ErrorKind = pipeline.KindFailure
	}
	return res
}

func (r *recordingRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func newDispatcher(t *testing.T, runner capability.Runner) *dispatch.Dispatcher {
	t.Helper()
	reg := capability.NewRegistry()
	if err := capability.RegisterBuiltins(reg, runner); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return dispatch.New(reg, dispatch.WithLogger(testLogger()))
}

func TestExecute_UnknownCapability(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusSuccess}
	d := newDispatcher(t, runner)

	_, err := d.Execute(context.Background(), "launch_rocket", map[string]string{"container_id": "MSDU4234521"})
	var nf *capability.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *capability.NotFoundError", err)
	}
	if !errors.Is(err, berth.ErrCapabilityNotFound) {
		t.Error("error should unwrap to ErrCapabilityNotFound")
	}
	if runner.calls() != 0 {
		t.Errorf("runner calls = %d, want 0", runner.calls())
	}
}

func TestExecute_MissingParameter(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusSuccess}
	d := newDispatcher(t, runner)

	for _, params := range []map[string]string{nil, {}, {"container_id": ""}} {
		_, err := d.Execute(context.Background(), capability.GetContainerLocation, params)
		var mp *dispatch.MissingParameterError
		if !errors.As(err, &mp) {
			t.Fatalf("Execute(%v) err = %v, want *MissingParameterError", params, err)
		}
		if mp.Param != "container_id" {
			t.Errorf("Param = %q, want container_id", mp.Param)
		}
		if !errors.Is(err, berth.ErrMissingParameter) {
			t.Error("error should unwrap to ErrMissingParameter")
		}
	}
	if runner.calls() != 0 {
		t.Errorf("runner calls = %d, want 0", runner.calls())
	}
}

func TestExecute_FirstMissingParameterNamed(t *testing.T) {
	reg := capability.NewRegistry()
	err := reg.Register(capability.Descriptor{
		Name:      "compare_containers",
		Operation: container.OpFullInfo,
		Params: []capability.Param{
			{Name: "container_id", Required: true},
			{Name: "note"},
			{Name: "other_id", Required: true},
		},
		Handler: func(context.Context, capability.Invocation) *pipeline.Result { return nil },
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	d := dispatch.New(reg, dispatch.WithLogger(testLogger()))

	_, err = d.Execute(context.Background(), "compare_containers", map[string]string{"container_id": "MSDU4234521"})
	var mp *dispatch.MissingParameterError
	if !errors.As(err, &mp) || mp.Param != "other_id" {
		t.Fatalf("err = %v, want missing other_id", err)
	}
}

func TestExecute_InvalidContainerID(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusSuccess}
	d := newDispatcher(t, runner)

	_, err := d.Execute(context.Background(), capability.GetContainerInfo, map[string]string{"container_id": "ABC123"})
	var ve *container.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *container.ValidationError", err)
	}
	if !errors.Is(err, berth.ErrInvalidContainerID) {
		t.Error("error should unwrap to ErrInvalidContainerID")
	}
	if runner.calls() != 0 {
		t.Errorf("runner calls = %d, want 0", runner.calls())
	}
}

func TestExecute_NormalizesAndMintsWorkflow(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusSuccess}
	d := newDispatcher(t, runner)

	ctx := dispatch.WithCorrelationID(context.Background(), "qry_test")
	res, err := d.Execute(ctx, capability.CheckContainerHolds, map[string]string{"container_id": "msdu-423 4521"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Status = %q, want success", res.Status)
	}
	if res.ContainerID != "MSDU4234521" {
		t.Errorf("ContainerID = %q, want MSDU4234521", res.ContainerID)
	}
	if res.Operation != container.OpHolds {
		t.Errorf("Operation = %q, want %q", res.Operation, container.OpHolds)
	}
	if res.WorkflowID == "" {
		t.Error("WorkflowID should be minted")
	}

	req := runner.reqs[0]
	if req.WorkflowID.String() != res.WorkflowID {
		t.Errorf("request workflow = %s, result workflow = %s", req.WorkflowID, res.WorkflowID)
	}
	if req.CorrelationID != "qry_test" {
		t.Errorf("CorrelationID = %q, want qry_test", req.CorrelationID)
	}
}

func TestExecute_DistinctWorkflowPerCall(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusSuccess}
	d := newDispatcher(t, runner)

	const n = 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Execute(context.Background(), capability.GetContainerLocation, map[string]string{"container_id": "MSDU4234521"})
			if err != nil {
				t.Errorf("Execute: %v", err)
				return
			}
			ids <- res.WorkflowID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for wf := range ids {
		if seen[wf] {
			t.Errorf("workflow id %s reused", wf)
		}
		seen[wf] = true
	}
	if len(seen) != n {
		t.Errorf("distinct workflows = %d, want %d", len(seen), n)
	}
}

func TestExecute_PipelineFailureIsResult(t *testing.T) {
	runner := &recordingRunner{status: pipeline.StatusFailed}
	d := newDispatcher(t, runner)

	res, err := d.Execute(context.Background(), capability.GetLastFreeDay, map[string]string{"container_id": "MSDU4234521"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != pipeline.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if res.Error == "" {
		t.Error("Error should carry the last step message")
	}
	if res.Operation != container.OpLastFreeDay {
		t.Errorf("Operation = %q, want %q", res.Operation, container.OpLastFreeDay)
	}
}

func TestExecute_NilHandlerResult(t *testing.T) {
	reg := capability.NewRegistry()
	_ = reg.Register(capability.Descriptor{
		Name:      "broken",
		Operation: container.OpLocation,
		Params:    []capability.Param{{Name: "container_id", Required: true}},
		Handler:   func(context.Context, capability.Invocation) *pipeline.Result { return nil },
	})
	d := dispatch.New(reg, dispatch.WithLogger(testLogger()))

	res, err := d.Execute(context.Background(), "broken", map[string]string{"container_id": "MSDU4234521"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OK() {
		t.Error("nil handler result should be reported as failed")
	}
	if res.WorkflowID == "" {
		t.Error("WorkflowID should still be reported")
	}
}

func TestExecute_EndToEndLocation(t *testing.T) {
	now := time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	table := activity.NewTable(activity.Deps{
		Raws:     st,
		Records:  st,
		Sessions: fixture.New(),
		Now:      func() time.Time { return now },
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

	d := newDispatcher(t, orch)
	res, err := d.Execute(context.Background(), capability.GetContainerLocation, map[string]string{"container_id": "ABCD1234567"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Status = %q (%s), want success", res.Status, res.Error)
	}
	if res.CacheHit {
		t.Error("first call should miss the cache")
	}
	if res.Data == nil || res.Data.Location == nil || *res.Data.Location != "Block B4 Row 12" {
		t.Errorf("Location = %v, want Block B4 Row 12", res.Data)
	}

	n, err := st.CountSnapshots(context.Background())
	if err != nil {
		t.Fatalf("CountSnapshots: %v", err)
	}
	if n != 1 {
		t.Errorf("snapshots = %d, want 1", n)
	}
}
