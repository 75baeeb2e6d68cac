package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/berth"
	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/cache"
	"github.com/xraph/berth/session"
	"github.com/xraph/berth/session/fixture"
	rodsession "github.com/xraph/berth/session/rod"
	"github.com/xraph/berth/store"
	"github.com/xraph/berth/store/memory"
	mongostore "github.com/xraph/berth/store/mongo"
	pgstore "github.com/xraph/berth/store/postgres"
	redisstore "github.com/xraph/berth/store/redis"
	sqlitestore "github.com/xraph/berth/store/sqlite"
)

// OpenStore builds the store selected by cfg.Driver. For redis the returned
// release func closes the client; it is nil for every other driver.
func OpenStore(ctx context.Context, cfg berth.StoreConfig, logger *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil, nil

	case "postgres":
		s, err := pgstore.New(ctx, cfg.DSN, pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:berth.db"
		}
		s, err := sqlitestore.Open(dsn, sqlitestore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "mongo":
		s, err := mongostore.Open(ctx, cfg.DSN, cfg.Database, mongostore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("berth/engine: parse redis dsn: %w", err)
		}
		client := redis.NewClient(opts)
		return redisstore.New(client, redisstore.WithLogger(logger)), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("berth/engine: unknown store driver %q", cfg.Driver)
	}
}

// OpenCache builds the answer cache selected by cfg.Driver. For redis the
// returned release func owns the client.
func OpenCache(cfg berth.CacheConfig, logger *slog.Logger) (cache.Cache, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return cache.NewMemory(), nil, nil
	case "none":
		return cache.Nop{}, nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return redisstore.New(client, redisstore.WithLogger(logger)), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("berth/engine: unknown cache driver %q", cfg.Driver)
	}
}

// OpenSessions builds the session provider selected by cfg.Provider.
func OpenSessions(cfg berth.SessionConfig, logger *slog.Logger) (session.Provider, error) {
	switch cfg.Provider {
	case "", "fixture":
		return fixture.New(), nil
	case "rod":
		return rodsession.New(rodsession.Config{
			SearchURL:         cfg.SearchURL,
			ControlURL:        cfg.ControlURL,
			Headless:          cfg.Headless,
			NavigationTimeout: cfg.NavigationTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("berth/engine: unknown session provider %q", cfg.Provider)
	}
}

// OpenReasoner builds the reasoner selected by cfg.Provider. A gemini
// provider without an API key degrades to the rules reasoner.
func OpenReasoner(ctx context.Context, cfg berth.ReasonerConfig, logger *slog.Logger) (agent.Reasoner, error) {
	switch cfg.Provider {
	case "", "rules":
		return agent.Rules{}, nil
	case "gemini":
		if cfg.APIKey == "" {
			logger.Warn("gemini reasoner has no api key, using rules reasoner")
			return agent.Rules{}, nil
		}
		return agent.NewGemini(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("berth/engine: unknown reasoner provider %q", cfg.Provider)
	}
}
