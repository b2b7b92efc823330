package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract, normalize and write the CSV without publishing",
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx, rt, cleanup, err := startRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := rt.Extract(ctx)
	renderReport(cmd.OutOrStdout(), report)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return nil
}
