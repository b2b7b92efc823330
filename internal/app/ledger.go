package app

import (
	"github.com/samvad-hq/samvad-headline-pipeline/internal/pipeline"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/storage"
)

// toRunRecord flattens a driver report into its ledger form.
func toRunRecord(report pipeline.RunReport, mode string) storage.RunRecord {
	rec := storage.RunRecord{
		ID:         report.RunID,
		Mode:       mode,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Status:     storage.StatusSucceeded,
		Records:    report.Records,
		OutputPath: report.OutputPath,
		FailedStep: report.FailedStep(),
		Steps:      make([]storage.StepRecord, 0, len(report.Steps)),
	}
	if report.Err != nil {
		rec.Status = storage.StatusFailed
		rec.Error = report.Err.Error()
	}
	for _, s := range report.Steps {
		step := storage.StepRecord{
			Name:      s.Name,
			State:     string(s.State),
			ElapsedMS: s.Elapsed.Milliseconds(),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		rec.Steps = append(rec.Steps, step)
	}
	return rec
}
