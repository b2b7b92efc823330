package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/pipeline"
)

// renderReport prints one row per step followed by publisher outcomes.
func renderReport(out io.Writer, report pipeline.RunReport) {
	if report.RunID == "" {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("run %s", report.RunID)
	t.AppendHeader(table.Row{"Step", "State", "Elapsed", "Detail"})
	for _, s := range report.Steps {
		detail := ""
		if s.Err != nil {
			detail = s.Err.Error()
		}
		t.AppendRow(table.Row{s.Name, string(s.State), s.Elapsed.Round(time.Millisecond).String(), detail})
		for _, res := range s.Publish {
			status := "ok"
			if !res.Success {
				status = "failed"
			}
			t.AppendRow(table.Row{"", "", "", fmt.Sprintf("%s[%s] %s: %s", res.PublisherType, res.PublisherID, status, res.Message)})
		}
	}
	t.AppendFooter(table.Row{"records", report.Records, "", report.OutputPath})
	t.SetStyle(table.StyleRounded)
	// Footer holds the output path, which must print as given.
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}
