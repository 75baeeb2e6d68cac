// Package backoff computes the wait between attempts of a pipeline step.
// A Policy bounds both the delay and the number of attempts; a Strategy
// only shapes the delay. All types are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

var (
	_ Strategy = Policy{}
	_ Strategy = (*Jitter)(nil)
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry n (1-indexed).
	// Retry 1 follows the first failed attempt.
	Delay(retry int) time.Duration
}

// Policy is an exponential retry policy with a bounded attempt budget.
// Delay = min(Initial * Coefficient^(retry-1), Max).
type Policy struct {
	Initial     time.Duration
	Max         time.Duration
	Coefficient float64

	// MaxAttempts counts the first attempt. Values below 1 mean 1.
	MaxAttempts int
}

// DefaultPolicy returns the policy used by every retried step:
// 1s initial, doubling, capped at 10s, three attempts in total.
func DefaultPolicy() Policy {
	return Policy{
		Initial:     time.Second,
		Max:         10 * time.Second,
		Coefficient: 2.0,
		MaxAttempts: 3,
	}
}

// Delay returns the wait before retry n.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	coef := p.Coefficient
	if coef < 1 {
		coef = 1
	}
	d := float64(p.Initial) * math.Pow(coef, float64(retry-1))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// Attempts returns the attempt budget, never less than one.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// ──────────────────────────────────────────────────
// Jitter
// ──────────────────────────────────────────────────

// Jitter spreads the delays of an underlying strategy over [0, d].
type Jitter struct {
	Base Strategy
}

// WithJitter wraps s with full jitter.
func WithJitter(s Strategy) *Jitter {
	return &Jitter{Base: s}
}

// Delay returns a random duration in [0, Base.Delay(retry)].
func (j *Jitter) Delay(retry int) time.Duration {
	base := j.Base.Delay(retry)
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter intentionally uses non-crypto rand
}
