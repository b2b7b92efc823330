package publishers

import (
	"context"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
)

// Logger is the structured logging surface publishers write to.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// Publisher pushes the freshly written output file to a downstream system
// (data versioning, source control, HTTP hooks, queues). On success it returns
// a short human readable description of what it did.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) (string, error)
}

// Result is the observable outcome of one publisher run.
type Result struct {
	PublisherID   string `json:"publisher_id"`
	PublisherType string `json:"publisher_type"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}
