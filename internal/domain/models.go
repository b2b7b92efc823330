package domain

// Domain contains core models shared across the pipeline steps.

// ArticleRecord is a single article container extracted from a source page.
// ID is 1-based and contiguous within one page only. A nil Title or
// Description means the heading or paragraph element was missing.
type ArticleRecord struct {
	ID          int     `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Source      string  `json:"source"`
}

// ExtractionResult holds everything pulled from one fetched page.
type ExtractionResult struct {
	Links    []string        `json:"links"`
	Articles []ArticleRecord `json:"articles"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or "" for an absent field.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
