package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealhunter/models"
)

func TestKeywordRelevanceFilter_Titles(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		title       string
		expectedRel bool
	}{
		{"SingleWordMatch", "laptop", "ASUS Gaming Laptop X", true},
		{"AnyWordMatches", "gaming laptop", "Gaming Mouse RGB", true},
		{"NoMatch", "gaming laptop", "Red Sneakers", false},
		{"PunctuationStripped", "face-wash!", "Neutrogena Facewash 200ml", true},
		{"SubstringMatch", "phone", "Apple iPhone 13 Pro Max", true},
		{"EmptyTitle", "laptop", "", false},
		{"OnlyShortTokens", "a b", "a b c", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filter := NewKeywordRelevanceFilter(tc.query)

			rel, _ := filter.IsRelevant(tc.title)
			if rel != tc.expectedRel {
				t.Errorf("expected relevance %v, got %v", tc.expectedRel, rel)
			}
		})
	}
}

func TestKeywordRelevanceFilter_Score(t *testing.T) {
	filter := NewKeywordRelevanceFilter("gaming laptop")

	_, score := filter.IsRelevant("ASUS Gaming Laptop X")
	assert.Equal(t, 1.0, score)

	_, score = filter.IsRelevant("Gaming chair")
	assert.Equal(t, 0.5, score)

	_, score = filter.IsRelevant("gaming gaming gaming mousepad")
	assert.Equal(t, 0.5, score)
}

func TestKeywordRelevanceFilter_OverlappingKeywords(t *testing.T) {
	filter := NewKeywordRelevanceFilter("iphone phone")

	rel, score := filter.IsRelevant("Apple iPhone 13")
	assert.True(t, rel)
	assert.Equal(t, 1.0, score)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"gaming", "laptop"}, Tokenize("  Gaming   LAPTOP "))
	assert.Equal(t, []string{"iphone", "15"}, Tokenize("iPhone 15!"))
	assert.Equal(t, []string{"face", "wash"}, Tokenize("face wash face"))
	assert.Empty(t, Tokenize("a - ?"))
	assert.Empty(t, Tokenize(""))
}

func TestFilter(t *testing.T) {
	products := []models.Product{
		{ItemID: "1", Title: "ASUS Gaming Laptop X"},
		{ItemID: "2", Title: "Red Sneakers"},
		{ItemID: "3", Title: ""},
		{ItemID: "4", Title: "Lenovo laptop stand"},
	}

	t.Run("KeepsMatchingTitles", func(t *testing.T) {
		filtered := Filter(products, "gaming laptop")
		assert.Equal(t, []string{"1", "4"}, itemIDs(filtered))
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Filter(products, "gaming laptop")
		twice := Filter(once, "gaming laptop")
		assert.Equal(t, once, twice)
	})

	t.Run("EmptyTermPassesThrough", func(t *testing.T) {
		assert.Equal(t, products, Filter(products, ""))
		assert.Equal(t, products, Filter(products, "   "))
	})

	t.Run("EmptyListPassesThrough", func(t *testing.T) {
		assert.Empty(t, Filter(nil, "laptop"))
	})

	t.Run("NoUsableTokensDropsEverything", func(t *testing.T) {
		assert.Empty(t, Filter(products, "a"))
	})
}

func itemIDs(products []models.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ItemID)
	}
	return ids
}
