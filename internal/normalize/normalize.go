// Package normalize cleans extracted article text down to lowercase words.
package normalize

import (
	"regexp"
	"strings"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
)

var (
	tagPattern    = regexp.MustCompile(`<.*?>`)
	nonLetter     = regexp.MustCompile(`[^a-zA-Z]`)
	spaceRunsExpr = regexp.MustCompile(` +`)
)

// Text applies the cleanup substitutions in a fixed order: strip tag-like
// substrings, map every non ASCII letter to a space, lowercase, then collapse
// and trim spaces. The result holds only [a-z ] and is idempotent.
func Text(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = nonLetter.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = spaceRunsExpr.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Records normalizes title and description of every record in place and
// returns the same slice. Absent fields stay absent.
func Records(records []domain.ArticleRecord) []domain.ArticleRecord {
	for i := range records {
		records[i].Title = field(records[i].Title)
		records[i].Description = field(records[i].Description)
	}
	return records
}

func field(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := Text(*s)
	return &cleaned
}
