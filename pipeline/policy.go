package pipeline

import (
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/backoff"
)

// Policy bounds the execution of one step.
type Policy struct {
	// Timeout caps a single attempt. Zero disables the cap.
	Timeout time.Duration

	// Retry drives the delay between attempts and the attempt budget.
	// Best-effort steps ignore it and run once.
	Retry backoff.Policy

	// Backoff, when set, replaces Retry's delay schedule. Retry still
	// bounds the attempts.
	Backoff backoff.Strategy
}

// Delay returns the wait before retry n of a step under p.
func (p Policy) Delay(retry int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff.Delay(retry)
	}
	return p.Retry.Delay(retry)
}

// attempts returns the attempt budget for step under p.
func (p Policy) attempts(step Step) int {
	if step.BestEffort() {
		return 1
	}
	return p.Retry.Attempts()
}

// Policies maps steps to their policies.
type Policies map[Step]Policy

// DefaultPolicies returns the policies derived from berth.DefaultConfig.
func DefaultPolicies() Policies {
	return PoliciesFromConfig(berth.DefaultConfig().Pipeline)
}

// PoliciesFromConfig builds per-step policies sharing one retry policy,
// jittered when cfg.RetryJitter is set.
func PoliciesFromConfig(cfg berth.PipelineConfig) Policies {
	retry := backoff.Policy{
		Initial:     cfg.RetryInitial,
		Max:         cfg.RetryMax,
		Coefficient: cfg.RetryCoefficient,
		MaxAttempts: cfg.MaxAttempts,
	}
	var strategy backoff.Strategy
	if cfg.RetryJitter {
		strategy = backoff.WithJitter(retry)
	}
	timeouts := map[Step]time.Duration{
		StepCacheProbe:     cfg.CacheProbeTimeout,
		StepSessionAcquire: cfg.SessionAcquireTimeout,
		StepSearch:         cfg.SearchTimeout,
		StepPersistRaw:     cfg.PersistRawTimeout,
		StepExtract:        cfg.ExtractTimeout,
		StepValidate:       cfg.ValidateTimeout,
		StepPersist:        cfg.PersistTimeout,
	}

	p := make(Policies, len(timeouts))
	for step, timeout := range timeouts {
		p[step] = Policy{Timeout: timeout, Retry: retry, Backoff: strategy}
	}
	return p
}

// get returns the policy for step, falling back to the default retry
// policy with no timeout.
func (p Policies) get(step Step) Policy {
	if pol, ok := p[step]; ok {
		return pol
	}
	return Policy{Retry: backoff.DefaultPolicy()}
}
