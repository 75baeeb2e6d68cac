package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
	mw "github.com/xraph/berth/middleware"
)

// Orchestrator runs pipelines. It holds no per-run state and is safe for
// concurrent use.
type Orchestrator struct {
	table      Table
	policies   Policies
	middleware []mw.Middleware
	emitter    Emitter
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	chain   mw.Middleware
	pending sync.WaitGroup
}

// New creates an orchestrator. table must hold an executor for every step.
func New(table Table, opts ...Option) (*Orchestrator, error) {
	t := make(Table, len(table))
	for _, step := range Steps() {
		exec, ok := table[step]
		if !ok || exec == nil {
			return nil, fmt.Errorf("pipeline: no executor for step %s", step)
		}
		t[step] = exec
	}

	o := &Orchestrator{
		table:    t,
		policies: DefaultPolicies(),
		emitter:  NopEmitter{},
		logger:   slog.Default(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	mws := slices.Clone(o.middleware)
	mws = append(mws, mw.Recover(o.logger), mw.Timeout())
	o.chain = mw.Chain(mws...)

	return o, nil
}

// Run executes the pipeline for req and returns its terminal result. A nil
// WorkflowID is replaced by a fresh one.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	if req.WorkflowID.IsNil() {
		req.WorkflowID = id.NewWorkflowID()
	}

	start := time.Now()
	run := &Run{
		WorkflowID:    req.WorkflowID,
		ContainerID:   req.ContainerID,
		Operation:     req.Operation,
		CorrelationID: req.CorrelationID,
		State:         RunStateRunning,
		StartedAt:     o.now().UTC(),
	}
	sc := newStepContext(req)
	log := o.logger.With(
		slog.String("workflow_id", req.WorkflowID.String()),
		slog.String("container_id", req.ContainerID),
		slog.String("operation", req.Operation.String()),
	)

	o.emitter.EmitRunStarted(ctx, run)
	log.Debug("pipeline started")

	o.probe(ctx, run, sc, log)

	if sc.CacheHit {
		run.CacheHit = true
		for _, step := range []Step{StepSessionAcquire, StepSearch, StepPersistRaw} {
			run.Steps = append(run.Steps, StepReport{Step: step, Skipped: true})
		}
	} else {
		if se := o.fetch(ctx, run, sc, log); se != nil {
			return o.fail(ctx, run, se, start, log)
		}
		o.persistRaw(ctx, run, sc, log)
	}

	for _, step := range []Step{StepExtract, StepValidate} {
		if se := o.require(ctx, run, sc, step); se != nil {
			return o.fail(ctx, run, se, start, log)
		}
	}

	persist := o.runStep(ctx, run, sc, StepPersist)
	run.Steps = append(run.Steps, persist.Report)
	if !persist.OK() {
		run.PersistError = persist.Err.Message
		log.Error("persist failed",
			slog.String("kind", string(persist.Err.Kind)),
			slog.String("error", persist.Err.Message),
		)
	}

	return o.complete(ctx, run, sc, start, log)
}

// Wait blocks until every detached raw-document write has finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// probe runs cache_probe. Any failure or a document stored under another
// container id degrades to a miss.
func (o *Orchestrator) probe(ctx context.Context, run *Run, sc *StepContext, log *slog.Logger) {
	res := o.runStep(ctx, run, sc, StepCacheProbe)
	run.Steps = append(run.Steps, res.Report)
	if !res.OK() {
		log.Warn("cache probe failed, treating as miss", slog.String("error", res.Err.Message))
		return
	}

	raw := res.Output.Raw
	if raw == nil {
		return
	}
	if got := container.Normalize(raw.ContainerID); got != sc.ContainerID {
		log.Warn("cached document belongs to another container, treating as miss",
			slog.String("cached_container_id", got),
		)
		return
	}
	if err := sc.apply(StepCacheProbe, Output{Raw: raw}); err != nil {
		log.Warn("cache probe output rejected, treating as miss", slog.String("error", err.Error()))
	}
}

// fetch acquires a session and searches with it. The session is closed
// once search is done, whatever its outcome.
func (o *Orchestrator) fetch(ctx context.Context, run *Run, sc *StepContext, log *slog.Logger) *StepError {
	if se := o.require(ctx, run, sc, StepSessionAcquire); se != nil {
		return se
	}
	defer o.release(ctx, sc, log)

	return o.require(ctx, run, sc, StepSearch)
}

func (o *Orchestrator) release(ctx context.Context, sc *StepContext, log *slog.Logger) {
	if sc.Session == nil {
		return
	}
	if err := sc.Session.Close(context.WithoutCancel(ctx)); err != nil {
		log.Warn("session close failed",
			slog.String("session_id", sc.Session.ID().String()),
			slog.String("error", err.Error()),
		)
	}
}

// persistRaw hands the fetched document to persist_raw on a detached
// goroutine. The goroutine works on snapshots so the run can move on.
func (o *Orchestrator) persistRaw(ctx context.Context, run *Run, sc *StepContext, log *slog.Logger) {
	snap := sc.view()
	runSnap := run.Clone()
	run.Steps = append(run.Steps, StepReport{Step: StepPersistRaw, Detached: true})

	bg := context.WithoutCancel(ctx)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		res := o.runStep(bg, runSnap, &snap, StepPersistRaw)
		if !res.OK() {
			log.Warn("raw document persistence failed", slog.String("error", res.Err.Message))
		}
	}()
}

// require runs a step that must succeed and applies its output.
func (o *Orchestrator) require(ctx context.Context, run *Run, sc *StepContext, step Step) *StepError {
	res := o.runStep(ctx, run, sc, step)
	if !res.OK() {
		run.Steps = append(run.Steps, res.Report)
		return res.Err
	}
	if err := sc.apply(step, res.Output); err != nil {
		se := &StepError{Step: step, Kind: KindFailure, Message: err.Error(), Attempts: res.Report.Attempts, Err: err}
		res.Report.Error = se.Message
		res.Report.Kind = se.Kind
		run.Steps = append(run.Steps, res.Report)
		return se
	}
	run.Steps = append(run.Steps, res.Report)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, se *StepError, start time.Time, log *slog.Logger) *Result {
	completed := o.now().UTC()
	run.State = RunStateFailed
	run.Error = se.Error()
	run.ErrorKind = se.Kind
	run.CompletedAt = &completed

	log.Error("pipeline failed",
		slog.String("step", se.Step.String()),
		slog.String("kind", string(se.Kind)),
		slog.Int("attempts", se.Attempts),
		slog.String("error", se.Message),
		slog.Duration("elapsed", time.Since(start)),
	)
	o.emitter.EmitRunFailed(ctx, run, se)

	return &Result{
		Status:      StatusFailed,
		WorkflowID:  run.WorkflowID,
		ContainerID: run.ContainerID,
		Operation:   run.Operation,
		Error:       run.Error,
		ErrorKind:   se.Kind,
		CacheHit:    run.CacheHit,
		Steps:       slices.Clone(run.Steps),
	}
}

func (o *Orchestrator) complete(ctx context.Context, run *Run, sc *StepContext, start time.Time, log *slog.Logger) *Result {
	elapsed := time.Since(start)
	completed := o.now().UTC()
	run.State = RunStateCompleted
	run.CompletedAt = &completed

	log.Info("pipeline completed",
		slog.Bool("cache_hit", run.CacheHit),
		slog.Duration("elapsed", elapsed),
	)
	o.emitter.EmitRunCompleted(ctx, run, elapsed)

	return &Result{
		Status:      StatusSuccess,
		WorkflowID:  run.WorkflowID,
		ContainerID: run.ContainerID,
		Operation:   run.Operation,
		Data:        sc.Record.Clone(),
		CacheHit:    run.CacheHit,
		Steps:       slices.Clone(run.Steps),
	}
}
