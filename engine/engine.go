package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/berth"
	"github.com/xraph/berth/activity"
	"github.com/xraph/berth/agent"
	audithook "github.com/xraph/berth/audit_hook"
	"github.com/xraph/berth/cache"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/ext"
	"github.com/xraph/berth/id"
	mw "github.com/xraph/berth/middleware"
	"github.com/xraph/berth/observability"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
	"github.com/xraph/berth/session"
	"github.com/xraph/berth/store"
)

const instrumentationName = "github.com/xraph/berth"

// queryObserver feeds answered queries into the extension registry.
type queryObserver struct {
	r *ext.Registry
}

func (o queryObserver) QueryAnswered(ctx context.Context, l *query.Log) {
	o.r.EmitQueryAnswered(ctx, l)
}

// Engine owns every subsystem built from a Config.
// Use Build to create one.
type Engine struct {
	cfg    berth.Config
	logger *slog.Logger

	store    store.Store
	cache    cache.Cache
	sessions session.Provider
	reasoner agent.Reasoner

	extensions   *ext.Registry
	orchestrator *pipeline.Orchestrator
	capabilities *capability.Registry
	dispatcher   *dispatch.Dispatcher
	service      *agent.Service

	mws      []mw.Middleware
	pending  []ext.Extension
	releases []func() error

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithStore uses s instead of the store named by the config. The caller
// keeps ownership of s; Close does not close it.
func WithStore(s store.Store) Option {
	return func(eng *Engine) { eng.store = s }
}

// WithCache uses c as the answer cache.
func WithCache(c cache.Cache) Option {
	return func(eng *Engine) { eng.cache = c }
}

// WithSessions uses p as the session provider. The caller keeps ownership.
func WithSessions(p session.Provider) Option {
	return func(eng *Engine) { eng.sessions = p }
}

// WithReasoner uses r as the primary reasoner.
func WithReasoner(r agent.Reasoner) Option {
	return func(eng *Engine) { eng.reasoner = r }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.pending = append(eng.pending, e) }
}

// WithMiddleware adds step-attempt middleware after the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the step
// tracing middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for both the metrics
// middleware and the observability extension. If not set, the global
// provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// Build creates an Engine from cfg. Components supplied through options
// take precedence over the ones cfg describes.
func Build(ctx context.Context, cfg berth.Config, opts ...Option) (*Engine, error) {
	eng := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	eng.extensions = ext.NewRegistry(eng.logger)

	if err := eng.open(ctx); err != nil {
		_ = eng.release()
		return nil, err
	}

	// Persistence and metrics extensions come first so user extensions see
	// stored runs.
	eng.extensions.Register(audithook.New(
		audithook.WithRunStore(eng.store),
		audithook.WithQueryLogs(eng.store),
		audithook.WithRecorder(audithook.LogRecorder(eng.logger)),
		audithook.WithLogger(eng.logger),
	))
	if eng.meterProvider != nil {
		eng.extensions.Register(observability.NewMetricsExtensionWithMeter(
			eng.meterProvider.Meter(instrumentationName + "/observability")))
	} else {
		eng.extensions.Register(observability.NewMetricsExtension())
	}
	for _, e := range eng.pending {
		eng.extensions.Register(e)
	}

	// Default step middleware: tracing → metrics → logging. The
	// orchestrator adds recover and timeout innermost.
	var tracingMw, metricsMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}
	allMws := append([]mw.Middleware{tracingMw, metricsMw, mw.Logging(eng.logger)}, eng.mws...)

	table := activity.NewTable(activity.Deps{
		Raws:      eng.store,
		Records:   eng.store,
		Sessions:  eng.sessions,
		RawMaxAge: cfg.Pipeline.RawMaxAge,
		Logger:    eng.logger,
	})
	orch, err := pipeline.New(table,
		pipeline.WithLogger(eng.logger),
		pipeline.WithEmitter(eng.extensions),
		pipeline.WithPolicies(pipeline.PoliciesFromConfig(cfg.Pipeline)),
		pipeline.WithMiddleware(allMws...),
	)
	if err != nil {
		_ = eng.release()
		return nil, err
	}
	eng.orchestrator = orch

	eng.capabilities = capability.NewRegistry()
	if err := capability.RegisterBuiltins(eng.capabilities, orch); err != nil {
		_ = eng.release()
		return nil, err
	}
	eng.dispatcher = dispatch.New(eng.capabilities, dispatch.WithLogger(eng.logger))

	svcOpts := []agent.Option{
		agent.WithLogger(eng.logger),
		agent.WithCache(eng.cache, cfg.Cache.TTL),
		agent.WithObserver(queryObserver{r: eng.extensions}),
	}
	if _, isRules := eng.reasoner.(agent.Rules); !isRules {
		svcOpts = append(svcOpts, agent.WithFallback(agent.Rules{}))
	}
	eng.service = agent.NewService(eng.reasoner, eng.dispatcher, eng.capabilities, svcOpts...)

	eng.logger.Info("berth engine built",
		slog.String("store", driverName(cfg.Store.Driver, "memory")),
		slog.String("cache", driverName(cfg.Cache.Driver, "memory")),
		slog.String("session", driverName(cfg.Session.Provider, "fixture")),
		slog.String("reasoner", fmt.Sprintf("%T", eng.reasoner)),
		slog.Int("capabilities", eng.capabilities.Len()),
	)
	return eng, nil
}

// open builds the components that were not supplied through options.
func (eng *Engine) open(ctx context.Context) error {
	if eng.store == nil {
		st, release, err := OpenStore(ctx, eng.cfg.Store, eng.logger)
		if err != nil {
			return err
		}
		eng.store = st
		eng.releases = append(eng.releases, st.Close)
		if release != nil {
			eng.releases = append(eng.releases, release)
		}
	}
	if eng.cache == nil {
		c, release, err := OpenCache(eng.cfg.Cache, eng.logger)
		if err != nil {
			return err
		}
		eng.cache = c
		if release != nil {
			eng.releases = append(eng.releases, release)
		}
	}
	if eng.sessions == nil {
		p, err := OpenSessions(eng.cfg.Session, eng.logger)
		if err != nil {
			return err
		}
		eng.sessions = p
		eng.releases = append(eng.releases, p.Close)
	}
	if eng.reasoner == nil {
		r, err := OpenReasoner(ctx, eng.cfg.Reasoner, eng.logger)
		if err != nil {
			return err
		}
		eng.reasoner = r
	}
	return nil
}

// Answer answers a natural-language query.
func (eng *Engine) Answer(ctx context.Context, q string) (*agent.Answer, error) {
	return eng.service.Answer(ctx, q)
}

// AnswerStream answers q and reports progress through fn.
func (eng *Engine) AnswerStream(ctx context.Context, q string, fn agent.ProgressFunc) (*agent.Answer, error) {
	return eng.service.AnswerStream(ctx, q, fn)
}

// Execute runs a named capability.
func (eng *Engine) Execute(ctx context.Context, name string, params map[string]string) (*dispatch.ToolResult, error) {
	return eng.dispatcher.Execute(ctx, name, params)
}

// Track runs the built-in capability for op against containerID.
func (eng *Engine) Track(ctx context.Context, containerID string, op container.Operation) (*dispatch.ToolResult, error) {
	name, ok := capability.CapabilityFor(op)
	if !ok {
		return nil, fmt.Errorf("%w: %q", berth.ErrInvalidOperation, op)
	}
	return eng.dispatcher.Execute(ctx, name, map[string]string{
		capability.ParamContainerID: containerID,
	})
}

// Catalogue returns the capability catalogue in registration order.
func (eng *Engine) Catalogue() []capability.CatalogueEntry {
	return eng.capabilities.Catalogue()
}

// Describe returns the metadata of a registered capability.
func (eng *Engine) Describe(name string) (capability.Metadata, error) {
	return eng.capabilities.Describe(name)
}

// Registry returns the capability registry.
func (eng *Engine) Registry() *capability.Registry { return eng.capabilities }

// Snapshot returns the last persisted record of a container.
func (eng *Engine) Snapshot(ctx context.Context, containerID string) (*container.Snapshot, error) {
	cid, err := container.ParseID(containerID)
	if err != nil {
		return nil, err
	}
	return eng.store.GetSnapshot(ctx, cid)
}

// Run returns one pipeline run audit record.
func (eng *Engine) Run(ctx context.Context, workflowID id.WorkflowID) (*pipeline.Run, error) {
	return eng.store.GetRun(ctx, workflowID)
}

// Runs lists pipeline runs newest first.
func (eng *Engine) Runs(ctx context.Context, opts pipeline.ListOpts) ([]*pipeline.Run, error) {
	return eng.store.ListRuns(ctx, opts)
}

// QueryLogs lists answered queries newest first.
func (eng *Engine) QueryLogs(ctx context.Context, opts query.LogOpts) ([]*query.Log, error) {
	return eng.store.ListQueryLogs(ctx, opts)
}

// Migrate runs the store migrations.
func (eng *Engine) Migrate(ctx context.Context) error { return eng.store.Migrate(ctx) }

// Ping checks store connectivity.
func (eng *Engine) Ping(ctx context.Context) error { return eng.store.Ping(ctx) }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Config returns the configuration the engine was built from.
func (eng *Engine) Config() berth.Config { return eng.cfg }

// Logger returns the engine logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }

// Close waits for detached pipeline work, notifies extensions and releases
// every component the engine opened.
func (eng *Engine) Close(ctx context.Context) error {
	eng.orchestrator.Wait()
	eng.extensions.EmitShutdown(ctx)
	return eng.release()
}

func (eng *Engine) release() error {
	var g errgroup.Group
	for _, fn := range eng.releases {
		g.Go(fn)
	}
	eng.releases = nil
	if err := g.Wait(); err != nil {
		return fmt.Errorf("berth/engine: close: %w", err)
	}
	return nil
}

func driverName(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
