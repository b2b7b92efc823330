// Package main provides the headline pipeline command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "Headline extraction pipeline",
	Long:          "Fetches configured news homepages, extracts and normalizes article headlines, writes them to CSV and publishes the file through dvc and git.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagOutput   string
	flagURLs     []string
	flagLogLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "CSV output path (overrides OUTPUT_PATH)")
	rootCmd.PersistentFlags().StringSliceVarP(&flagURLs, "url", "u", nil, "Source URL to fetch; repeatable, replaces the sources file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}
