package agent

import (
	"log/slog"
	"time"

	"github.com/xraph/berth/cache"
	"github.com/xraph/berth/query"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithFallback sets the reasoner used when the primary one fails.
func WithFallback(r Reasoner) Option {
	return func(s *Service) { s.fallback = r }
}

// WithCache sets the answer cache and its time-to-live.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithQueryLogs sets where answered queries are logged.
func WithQueryLogs(ls query.LogStore) Option {
	return func(s *Service) { s.logs = ls }
}

// WithObserver sets the observer notified of every answered query.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
