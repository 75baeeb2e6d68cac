// Package api is the HTTP surface of berth: natural-language queries,
// direct container lookups, the capability catalogue, run and query audit
// listings, a health probe and the MCP transport.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/berth/engine"
	"github.com/xraph/berth/mcpserver"
)

// API wires all echo handlers together for an Engine.
type API struct {
	eng     *engine.Engine
	mcp     *mcpserver.Server
	limiter *clientLimiter
	logger  *slog.Logger
	echo    *echo.Echo
}

// New creates an API from an Engine. Server settings come from the
// engine's config.
func New(eng *engine.Engine) (*API, error) {
	mcpSrv, err := mcpserver.New(eng, eng.Registry(),
		mcpserver.WithAnswerer(eng),
		mcpserver.WithLogger(eng.Logger()),
	)
	if err != nil {
		return nil, err
	}

	cfg := eng.Config().Server
	a := &API{
		eng:     eng,
		mcp:     mcpSrv,
		limiter: newClientLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  eng.Logger(),
	}
	a.echo = a.build()
	return a, nil
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler { return a.echo }

func (a *API) build() *echo.Echo {
	cfg := a.eng.Config().Server

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("berth"))
	e.Use(requestLogger(a.logger))

	e.GET("/health", a.health)

	guard := []echo.MiddlewareFunc{requireAPIKey(cfg.APIKeys), rateLimit(a.limiter)}
	a.RegisterRoutes(e.Group("/api/v1", guard...))

	if base := strings.TrimRight(cfg.MCPBasePath, "/"); base != "" {
		e.Any(base+"/*", echo.WrapHandler(a.mcp.Handler(base)), guard...)
	}
	return e
}

// RegisterRoutes registers the /api/v1 routes into g.
func (a *API) RegisterRoutes(g *echo.Group) {
	g.POST("/query", a.query)
	g.POST("/query/stream", a.queryStream)
	g.GET("/queries", a.listQueries)

	g.GET("/containers/:id", a.trackContainer)
	g.GET("/containers/:id/snapshot", a.getSnapshot)
	g.GET("/containers/:id/runs", a.listContainerRuns)

	g.GET("/runs", a.listRuns)
	g.GET("/runs/:workflowId", a.getRun)

	g.GET("/capabilities", a.listCapabilities)
	g.GET("/capabilities/:name", a.getCapability)
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully within the configured timeout.
func (a *API) Serve(ctx context.Context) error {
	cfg := a.eng.Config().Server
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.echo,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("berth/api: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		a.logger.Info("http server shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
