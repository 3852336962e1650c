package relevance

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w]`)

// Tokenize lower-cases a search term, splits it on whitespace, strips non-word
// characters from every token and drops tokens shorter than two characters.
// Duplicates are kept out so scoring is not skewed by repeated words.
func Tokenize(term string) []string {
	words := strings.Fields(strings.ToLower(term))

	var keywords []string
	seen := make(map[string]bool)
	for _, word := range words {
		word = nonWord.ReplaceAllString(word, "")
		if len(word) < 2 {
			continue
		}
		if !seen[word] {
			keywords = append(keywords, word)
			seen[word] = true
		}
	}
	return keywords
}
