package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs from the run ledger",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RunTTL:          cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("read run ledger: %w", err)
	}
	renderHistory(cmd.OutOrStdout(), runs)
	return nil
}

func renderHistory(out io.Writer, runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Run", "Mode", "Started", "Duration", "Status", "Records", "Failed step"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Mode,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond).String(),
			r.Status,
			r.Records,
			r.FailedStep,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
