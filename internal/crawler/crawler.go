package crawler

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

// Service runs the scraper over every configured source, one after another.
type Service struct {
	scraper PageScraper
	log     logger.Logger
}

// NewService wires a crawler with a page scraper.
func NewService(scraper PageScraper, log logger.Logger) *Service {
	log = logger.Ensure(log)
	if scraper == nil {
		scraper = NewScraper(nil, log)
	}
	return &Service{scraper: scraper, log: log}
}

// Run scrapes each source in order and concatenates their records. The first
// failing source aborts the pass; no partial record set is returned.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) ([]domain.ArticleRecord, error) {
	if s == nil || s.scraper == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources configured for crawling")
	}

	var all []domain.ArticleRecord
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl cancelled before source %s: %w", src.ID, err)
		}

		result, err := s.scraper.Scrape(ctx, src)
		if err != nil {
			s.log.ErrorObj("source crawl failed", "source_error", map[string]any{
				"source_id": src.ID,
				"url":       src.URL,
				"error":     err.Error(),
			})
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
		all = append(all, result.Articles...)
	}

	if all == nil {
		all = []domain.ArticleRecord{}
	}
	return all, nil
}
