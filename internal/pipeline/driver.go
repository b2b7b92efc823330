package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
)

// Driver runs steps in order and stops at the first failure.
type Driver struct {
	steps []Step
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// NewDriver builds a driver for the given steps.
func NewDriver(log logger.Logger, steps ...Step) *Driver {
	cp := make([]Step, 0, len(steps))
	for _, s := range steps {
		if s != nil {
			cp = append(cp, s)
		}
	}
	return &Driver{
		steps: cp,
		log:   logger.Ensure(log),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// StepNames lists the configured steps in execution order.
func (d *Driver) StepNames() []string {
	names := make([]string, len(d.steps))
	for i, s := range d.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes every step once. Steps after a failure stay not_started. The
// returned error names the failed step; the report is always populated.
func (d *Driver) Run(ctx context.Context) (RunReport, error) {
	if d == nil || len(d.steps) == 0 {
		return RunReport{}, errors.New("pipeline has no steps")
	}

	report := RunReport{
		RunID:     d.newID(),
		StartedAt: d.now(),
		Steps:     make([]StepReport, len(d.steps)),
	}
	for i, s := range d.steps {
		report.Steps[i] = StepReport{Name: s.Name(), State: StateNotStarted}
	}
	ctx = WithRunID(ctx, report.RunID)

	d.log.InfoObj("pipeline run started", "pipeline_run", map[string]any{
		"run_id": report.RunID,
		"steps":  d.StepNames(),
	})

	var records []domain.ArticleRecord
	for i, step := range d.steps {
		if err := ctx.Err(); err != nil {
			report.Err = fmt.Errorf("pipeline cancelled before step %s: %w", step.Name(), err)
			break
		}

		sr := &report.Steps[i]
		sr.State = StateRunning
		sr.StartedAt = d.now()

		out, err := step.Run(ctx, records)
		sr.Elapsed = d.now().Sub(sr.StartedAt)
		if rr, ok := step.(ResultReporter); ok {
			sr.Publish = rr.Results()
		}
		if err != nil {
			sr.State = StateFailed
			sr.Err = err
			report.Err = fmt.Errorf("step %s: %w", step.Name(), err)
			d.log.ErrorObj("pipeline step failed", "pipeline_step", map[string]any{
				"run_id":     report.RunID,
				"step":       step.Name(),
				"elapsed_ms": sr.Elapsed.Milliseconds(),
				"error":      err.Error(),
			})
			break
		}

		sr.State = StateSucceeded
		records = out
		report.Records = len(records)
		d.log.InfoObj("pipeline step succeeded", "pipeline_step", map[string]any{
			"run_id":     report.RunID,
			"step":       step.Name(),
			"records":    len(records),
			"elapsed_ms": sr.Elapsed.Milliseconds(),
		})
	}

	report.FinishedAt = d.now()
	if report.Err != nil {
		return report, report.Err
	}
	d.log.InfoObj("pipeline run finished", "pipeline_run", map[string]any{
		"run_id":     report.RunID,
		"records":    report.Records,
		"elapsed_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	return report, nil
}
