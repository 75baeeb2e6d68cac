package pipeline

import "fmt"

// Step identifies one unit of work in a pipeline run.
type Step int

const (
	StepCacheProbe Step = iota + 1
	StepSessionAcquire
	StepSearch
	StepPersistRaw
	StepExtract
	StepValidate
	StepPersist
)

var stepNames = map[Step]string{
	StepCacheProbe:     "cache_probe",
	StepSessionAcquire: "session_acquire",
	StepSearch:         "search",
	StepPersistRaw:     "persist_raw",
	StepExtract:        "extract",
	StepValidate:       "validate",
	StepPersist:        "persist",
}

// Steps returns every step in execution order.
func Steps() []Step {
	return []Step{
		StepCacheProbe,
		StepSessionAcquire,
		StepSearch,
		StepPersistRaw,
		StepExtract,
		StepValidate,
		StepPersist,
	}
}

// String returns the snake_case step name.
func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// BestEffort reports whether failures of s are logged and swallowed.
func (s Step) BestEffort() bool {
	switch s {
	case StepCacheProbe, StepPersistRaw, StepPersist:
		return true
	default:
		return false
	}
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("pipeline: unknown step %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(data []byte) error {
	p, err := ParseStep(string(data))
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// ParseStep returns the step with the given name.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("pipeline: unknown step %q", name)
}
