package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
)

// ErrEmptyDocument is returned when a page body has no markup at all.
var ErrEmptyDocument = errors.New("empty document")

// Extract parses markup and returns every hyperlink target plus one record per
// article container, both in document order.
func Extract(body []byte, sourceURL string) (domain.ExtractionResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("parse %s: %w", sourceURL, ErrEmptyDocument)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("parse %s: %w", sourceURL, err)
	}

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			links = append(links, href)
		}
	})

	articles := make([]domain.ArticleRecord, 0)
	doc.Find("article").Each(func(i int, art *goquery.Selection) {
		articles = append(articles, domain.ArticleRecord{
			ID:          i + 1,
			Title:       firstText(art, "h2"),
			Description: firstText(art, "p"),
			Source:      sourceURL,
		})
	})

	return domain.ExtractionResult{Links: links, Articles: articles}, nil
}

// firstText returns the trimmed text of the first descendant matching sel, or
// nil when there is none.
func firstText(scope *goquery.Selection, sel string) *string {
	node := scope.Find(sel).First()
	if node.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(node.Text())
	return &text
}
