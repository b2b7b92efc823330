package publishers

import "time"

// Event describes the output file being published.
type Event struct {
	RunID       string    `json:"run_id"`
	Stage       string    `json:"stage"`
	OutputPath  string    `json:"output_path"`
	Records     int       `json:"records"`
	Sources     []string  `json:"sources,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewEvent constructs an Event for the given run and stage.
func NewEvent(runID, stage, outputPath string, records int, sources []string) Event {
	return Event{
		RunID:       runID,
		Stage:       stage,
		OutputPath:  outputPath,
		Records:     records,
		Sources:     sources,
		PublishedAt: time.Now().UTC(),
	}
}
