package relevance

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"dealhunter/models"
)

// KeywordRelevanceFilter keeps listings whose title mentions the query.
type KeywordRelevanceFilter struct {
	matcher  *ahocorasick.Matcher
	keywords []string
}

// NewKeywordRelevanceFilter tokenizes the search term once so it can be matched
// against many titles.
func NewKeywordRelevanceFilter(searchTerm string) *KeywordRelevanceFilter {
	keywords := Tokenize(searchTerm)
	return &KeywordRelevanceFilter{
		matcher:  ahocorasick.NewStringMatcher(keywords),
		keywords: keywords,
	}
}

// Keywords returns the tokens the filter matches on.
func (f *KeywordRelevanceFilter) Keywords() []string {
	return f.keywords
}

// IsRelevant reports whether at least one keyword occurs in the title, along
// with the fraction of keywords found.
func (f *KeywordRelevanceFilter) IsRelevant(title string) (bool, float64) {
	if title == "" || len(f.keywords) == 0 {
		return false, 0.0
	}
	matches := f.matcher.MatchThreadSafe([]byte(strings.ToLower(title)))
	if len(matches) == 0 {
		return false, 0.0
	}

	found := make(map[int]struct{}, len(matches))
	for _, idx := range matches {
		found[idx] = struct{}{}
	}
	return true, float64(len(found)) / float64(len(f.keywords))
}

// Filter drops products whose title matches none of the search term's keywords.
// Products without a title never survive. An empty term or an empty list is
// passed through untouched.
func Filter(products []models.Product, searchTerm string) []models.Product {
	if strings.TrimSpace(searchTerm) == "" || len(products) == 0 {
		return products
	}

	f := NewKeywordRelevanceFilter(searchTerm)
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if ok, _ := f.IsRelevant(p.Title); ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
