package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientIdle is how long an unused client bucket is kept.
const clientIdle = 3 * time.Minute

// sweepThreshold triggers an idle sweep once this many clients are tracked.
const sweepThreshold = 1024

// clientState tracks the token bucket of one client.
type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client key.
// It is safe for concurrent use.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientState
	now     func() time.Time
}

// newClientLimiter returns nil when perSecond is not positive, which
// disables limiting. A zero burst defaults to 1.
func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*clientState),
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed now.
func (l *clientLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cs := l.clients[key]
	if cs == nil {
		if len(l.clients) >= sweepThreshold {
			l.sweep(now)
		}
		cs = &clientState{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cs
	}
	cs.lastSeen = now
	return cs.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than clientIdle. Callers hold mu.
func (l *clientLimiter) sweep(now time.Time) {
	for k, cs := range l.clients {
		if now.Sub(cs.lastSeen) > clientIdle {
			delete(l.clients, k)
		}
	}
}

// Len returns the number of tracked clients.
func (l *clientLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
