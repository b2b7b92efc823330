package crawler

import (
	"context"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

// PageScraper fetches one source page and extracts its records and links.
type PageScraper interface {
	Scrape(ctx context.Context, src sources.Source) (domain.ExtractionResult, error)
}
