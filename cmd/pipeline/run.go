package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once or on a cron schedule",
	Long:  "Runs extract, normalize, write, publish_data_version and publish_source_control. With --schedule (or SCHEDULE) the process stays up and triggers the pipeline on every tick; overlapping ticks are skipped.",
	RunE:  runPipeline,
}

var runSchedule string

func init() {
	runCmd.Flags().StringVar(&runSchedule, "schedule", "", `Cron expression such as "0 6 * * *" or "@daily" (overrides SCHEDULE)`)
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx, rt, cleanup, err := startRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	schedule := rt.Config().Schedule
	if cmd.Flags().Changed("schedule") {
		schedule = runSchedule
	}
	if schedule != "" {
		return rt.RunScheduled(ctx, schedule)
	}

	report, err := rt.RunOnce(ctx)
	renderReport(cmd.OutOrStdout(), report)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	return nil
}
