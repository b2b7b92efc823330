package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/httpclient"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

const defaultTimeout = 30 * time.Second

// Scraper fetches a source homepage and extracts article records from it.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
	now    func() time.Time
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{Timeout: defaultTimeout})
	}
	return &Scraper{
		client: client,
		log:    logger.Ensure(log),
		now:    time.Now,
	}
}

// Scrape performs one GET for the source and hands whatever body came back to
// the extractor. Non-2xx statuses are logged, not fatal.
func (s *Scraper) Scrape(ctx context.Context, src sources.Source) (domain.ExtractionResult, error) {
	start := s.now()
	s.log.InfoObj("extracting source", "source", map[string]any{
		"source_id": src.ID,
		"url":       src.URL,
	})

	resp, err := s.client.Get(ctx, src.URL)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("fetch %s: %w", src.URL, err)
	}

	if code := resp.StatusCode(); code < 200 || code > 399 {
		s.log.WarnObj("source returned non-success status", "source_status", map[string]any{
			"source_id": src.ID,
			"url":       src.URL,
			"status":    code,
			"body":      snippet(resp.Body()),
		})
	}

	result, err := Extract(resp.Body(), src.URL)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	s.log.InfoObj("source extracted", "source_result", map[string]any{
		"source_id":  src.ID,
		"url":        src.URL,
		"articles":   len(result.Articles),
		"links":      len(result.Links),
		"elapsed_ms": s.now().Sub(start).Milliseconds(),
	})
	return result, nil
}

func snippet(body []byte) string {
	const maxLen = 512
	str := strings.TrimSpace(string(body))
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	if str == "" {
		return "<empty>"
	}
	return str
}
