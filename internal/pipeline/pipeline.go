// Package pipeline runs the extraction chain as an explicit sequence of steps.
package pipeline

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/publishers"
)

// Step names in execution order.
const (
	StepExtract              = "extract"
	StepNormalize            = "normalize"
	StepWrite                = "write"
	StepPublishDataVersion   = "publish_data_version"
	StepPublishSourceControl = "publish_source_control"
)

// Step is one stage of the pipeline. It receives the records produced by the
// previous step and returns the records handed to the next one.
type Step interface {
	Name() string
	Run(ctx context.Context, records []domain.ArticleRecord) ([]domain.ArticleRecord, error)
}

// ResultReporter is implemented by steps that produce publisher outcomes.
type ResultReporter interface {
	Results() []publishers.Result
}

// StepState tracks where a step is in its lifecycle.
type StepState string

const (
	StateNotStarted StepState = "not_started"
	StateRunning    StepState = "running"
	StateSucceeded  StepState = "succeeded"
	StateFailed     StepState = "failed"
)

// StepReport describes the outcome of one step.
type StepReport struct {
	Name      string
	State     StepState
	StartedAt time.Time
	Elapsed   time.Duration
	Err       error
	Publish   []publishers.Result
}

// RunReport describes one pass of the driver.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepReport
	Records    int
	OutputPath string
	Err        error
}

// Succeeded reports whether every step ran and succeeded.
func (r RunReport) Succeeded() bool {
	if r.Err != nil {
		return false
	}
	for _, s := range r.Steps {
		if s.State != StateSucceeded {
			return false
		}
	}
	return true
}

// FailedStep returns the name of the step that failed, if any.
func (r RunReport) FailedStep() string {
	for _, s := range r.Steps {
		if s.State == StateFailed {
			return s.Name
		}
	}
	return ""
}

type runIDKey struct{}

// WithRunID attaches the run id to ctx so steps can label what they emit.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id stored by WithRunID.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
