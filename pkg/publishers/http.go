package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-headline-pipeline/pkg/httpclient"
)

const maxErrorBody = 512

// httpPublisher notifies a webhook that a run published its output. The event
// is sent as the JSON body and the run id and stage are mirrored in headers so
// receivers can route without decoding.
type httpPublisher struct {
	id     string
	target HTTPPublisherConfig
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return &httpPublisher{
		id:     cfg.ID,
		target: *cfg.HTTP,
		client: httpclient.NewRestyHTTPClient(timeout),
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) (string, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeaders(h.target.Headers).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Run-ID", evt.RunID).
		SetHeader("X-Pipeline-Stage", evt.Stage).
		SetBody(evt).
		Execute(h.target.Method, h.target.URL)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", h.target.Method, h.target.URL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%s %s returned %d: %s", h.target.Method, h.target.URL, resp.StatusCode(), errorBody(resp.Body()))
	}

	h.log.DebugObj("http publisher notified", "publisher_http", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
		"elapsed_ms":   resp.Time().Milliseconds(),
	})
	return fmt.Sprintf("%s %s -> %d", h.target.Method, h.target.URL, resp.StatusCode()), nil
}

// errorBody trims a failed response body for inclusion in an error.
func errorBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "<empty body>"
}
