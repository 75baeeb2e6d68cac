package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/id"
)

// Resolver looks up capabilities. *capability.Registry satisfies it.
type Resolver interface {
	Resolve(name string) (capability.Descriptor, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher executes capabilities. It holds no per-call state and is
// safe for concurrent use.
type Dispatcher struct {
	resolver Resolver
	logger   *slog.Logger
}

// New creates a dispatcher over resolver.
func New(resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type correlationKey struct{}

// WithCorrelationID returns a context whose dispatched runs carry cid.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationKey{}, cid)
}

func correlationID(ctx context.Context) string {
	cid, _ := ctx.Value(correlationKey{}).(string)
	return cid
}

type invocation struct {
	workflowID  string
	containerID string
	operation   container.Operation
}

// Execute runs the capability name with params and returns its terminal
// result. An error is returned only when no pipeline was started.
func (d *Dispatcher) Execute(ctx context.Context, name string, params map[string]string) (*ToolResult, error) {
	desc, err := d.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	for _, p := range desc.Required() {
		if v, ok := params[p]; !ok || v == "" {
			return nil, &MissingParameterError{Capability: name, Param: p}
		}
	}

	containerID, err := container.ParseID(params[capability.ParamContainerID])
	if err != nil {
		return nil, err
	}

	wfID := id.NewWorkflowID()
	inv := invocation{
		workflowID:  wfID.String(),
		containerID: containerID,
		operation:   desc.Operation,
	}

	log := d.logger.With(
		slog.String("capability", name),
		slog.String("workflow_id", inv.workflowID),
		slog.String("container_id", containerID),
	)
	log.Debug("dispatching capability")

	start := time.Now()
	res := desc.Handler(ctx, capability.Invocation{
		WorkflowID:    wfID,
		ContainerID:   containerID,
		CorrelationID: correlationID(ctx),
	})
	out := wrap(name, inv, res)

	if out.OK() {
		log.Info("capability completed",
			slog.Bool("cache_hit", out.CacheHit),
			slog.Duration("elapsed", time.Since(start)),
		)
	} else {
		log.Warn("capability failed",
			slog.String("error", out.Error),
			slog.String("error_kind", string(out.ErrorKind)),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return out, nil
}
