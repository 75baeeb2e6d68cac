package pipeline_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/xraph/berth"
	"github.com/xraph/berth/pipeline"
)

func TestStep_Names(t *testing.T) {
	tests := []struct {
		step pipeline.Step
		want string
	}{
		{pipeline.StepCacheProbe, "cache_probe"},
		{pipeline.StepSessionAcquire, "session_acquire"},
		{pipeline.StepSearch, "search"},
		{pipeline.StepPersistRaw, "persist_raw"},
		{pipeline.StepExtract, "extract"},
		{pipeline.StepValidate, "validate"},
		{pipeline.StepPersist, "persist"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		parsed, err := pipeline.ParseStep(tt.want)
		if err != nil || parsed != tt.step {
			t.Errorf("ParseStep(%q) = %v, %v", tt.want, parsed, err)
		}
	}

	if _, err := pipeline.ParseStep("fetch"); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestStep_BestEffort(t *testing.T) {
	best := map[pipeline.Step]bool{
		pipeline.StepCacheProbe: true,
		pipeline.StepPersistRaw: true,
		pipeline.StepPersist:    true,
	}
	for _, s := range pipeline.Steps() {
		if s.BestEffort() != best[s] {
			t.Errorf("%s.BestEffort() = %v, want %v", s, s.BestEffort(), best[s])
		}
	}
}

func TestStepReport_JSON(t *testing.T) {
	b, err := json.Marshal(pipeline.StepReport{Step: pipeline.StepSearch, Attempts: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["step"] != "search" {
		t.Errorf("step = %v, want search", got["step"])
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	cfg := berth.DefaultConfig().Pipeline
	p := pipeline.PoliciesFromConfig(cfg)

	if got := p[pipeline.StepSearch].Timeout; got != 45*time.Second {
		t.Errorf("search timeout = %v, want 45s", got)
	}
	if got := p[pipeline.StepValidate].Timeout; got != 10*time.Second {
		t.Errorf("validate timeout = %v, want 10s", got)
	}
	retry := p[pipeline.StepExtract].Retry
	if retry.Initial != time.Second || retry.Max != 10*time.Second || retry.MaxAttempts != 3 {
		t.Errorf("retry = %+v, want 1s/10s/3", retry)
	}
	if len(p) != len(pipeline.Steps()) {
		t.Errorf("policies = %d, want %d", len(p), len(pipeline.Steps()))
	}
}

func TestPoliciesFromConfig_Jitter(t *testing.T) {
	cfg := berth.DefaultConfig().Pipeline

	plain := pipeline.PoliciesFromConfig(cfg)[pipeline.StepSearch]
	if plain.Backoff != nil {
		t.Errorf("Backoff = %T, want nil without jitter", plain.Backoff)
	}
	if got := plain.Delay(2); got != 2*time.Second {
		t.Errorf("Delay(2) = %v, want 2s", got)
	}

	cfg.RetryJitter = true
	jittered := pipeline.PoliciesFromConfig(cfg)[pipeline.StepSearch]
	if jittered.Backoff == nil {
		t.Fatal("Backoff = nil, want a jittered strategy")
	}
	for retry := 1; retry <= 4; retry++ {
		limit := jittered.Retry.Delay(retry)
		for range 50 {
			if got := jittered.Delay(retry); got < 0 || got > limit {
				t.Errorf("Delay(%d) = %v, want within [0, %v]", retry, got, limit)
			}
		}
	}
}

func TestStepError_Retryable(t *testing.T) {
	tests := []struct {
		kind pipeline.ErrorKind
		want bool
	}{
		{pipeline.KindFailure, true},
		{pipeline.KindTimeout, true},
		{pipeline.KindSchema, false},
		{pipeline.KindMismatch, false},
	}
	for _, tt := range tests {
		e := &pipeline.StepError{Kind: tt.kind}
		if got := e.Retryable(); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
