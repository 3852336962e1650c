package suggestion

import (
	"strings"

	"github.com/kljensen/snowball"
)

// matches reports whether a suggestion fits what the user has typed so far:
// either the text contains the query, or every query word shares its stem
// with a word of the text ("laptops" matches "gaming laptop").
func matches(text, query string) bool {
	textLower := strings.ToLower(text)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return false
	}
	if strings.Contains(textLower, queryLower) {
		return true
	}

	textStems := make(map[string]bool)
	for _, w := range strings.Fields(textLower) {
		textStems[stem(w)] = true
	}
	queryWords := strings.Fields(queryLower)
	for _, w := range queryWords {
		if !textStems[stem(w)] {
			return false
		}
	}
	return len(queryWords) > 0
}

func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
