package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
)

// cronParser accepts standard five-field expressions and descriptors such as @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is an accepted cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// RunScheduled triggers RunOnce on every tick of expr until ctx is cancelled.
// A run still in progress when the next tick fires causes that tick to be skipped.
func (r *Runtime) RunScheduled(ctx context.Context, expr string) error {
	expr = strings.TrimSpace(expr)
	if err := ValidateSchedule(expr); err != nil {
		return err
	}

	clog := cronLogger{log: r.log}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(expr, func() { r.scheduledRun(ctx) }); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	r.log.InfoObj("pipeline schedule starting", "schedule_state", map[string]any{
		"schedule": expr,
		"sources":  len(r.sources),
	})
	c.Start()

	<-ctx.Done()
	r.log.InfoObj("pipeline schedule exiting", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (r *Runtime) scheduledRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := r.RunOnce(ctx)
	if err != nil {
		r.log.ErrorObj("scheduled run failed", "run_failure", map[string]any{
			"run_id": report.RunID,
			"step":   report.FailedStep(),
			"error":  err.Error(),
		})
	}
}

// cronLogger routes cron's internal logging through the structured logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) fields(keysAndValues []any) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.DebugObj("cron: "+msg, "cron", l.fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := l.fields(keysAndValues)
	fields["error"] = err.Error()
	l.log.ErrorObj("cron: "+msg, "cron", fields)
}
