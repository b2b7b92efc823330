// Package storage keeps a local ledger of pipeline runs.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Run states recorded in the ledger.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Store records pipeline runs and returns the most recent ones.
type Store interface {
	Close() error
	SaveRun(run RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
}

// RunRecord is the persisted summary of a single pipeline run.
type RunRecord struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Status     string       `json:"status"`
	Records    int          `json:"records"`
	OutputPath string       `json:"output_path"`
	FailedStep string       `json:"failed_step,omitempty"`
	Error      string       `json:"error,omitempty"`
	Steps      []StepRecord `json:"steps,omitempty"`
}

// StepRecord summarizes one step of a run.
type StepRecord struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// Duration reports the wall-clock length of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                        { return nil }
func (noopStore) SaveRun(RunRecord) error             { return nil }
func (noopStore) RecentRuns(int) ([]RunRecord, error) { return nil, nil }
