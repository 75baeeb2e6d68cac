// Package activity implements the executors behind each pipeline step:
// probing the raw-document cache, driving a session, extracting and
// validating the results table, and persisting what was learned.
//
// NewTable wires a full pipeline.Table from stores and a session provider.
package activity

import (
	"log/slog"
	"time"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/session"
)

// Deps are the collaborators the executors need.
type Deps struct {
	Raws     container.RawStore
	Records  container.RecordStore
	Sessions session.Provider

	// RawMaxAge turns cached raw documents older than this into misses.
	// Zero keeps them forever.
	RawMaxAge time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewTable returns the executor table for every pipeline step.
func NewTable(d Deps) pipeline.Table {
	return pipeline.Table{
		pipeline.StepCacheProbe:     &CacheProbe{deps: d},
		pipeline.StepSessionAcquire: &SessionAcquire{deps: d},
		pipeline.StepSearch:         &Search{deps: d},
		pipeline.StepPersistRaw:     &PersistRaw{deps: d},
		pipeline.StepExtract:        &Extract{deps: d},
		pipeline.StepValidate:       &Validate{},
		pipeline.StepPersist:        &Persist{deps: d},
	}
}
