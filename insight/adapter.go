package insight

import (
	"context"

	"dealhunter/models"
)

// NoListingsSummary is returned for an empty page without consulting the model.
const NoListingsSummary = "I couldn't find any listings for this search. Try a different keyword."

// Insight is the model's take on one page of products.
type Insight struct {
	Summary      string
	BestChoiceID string
	SecondBestID string
}

// Adapter is the AI collaborator consulted by search. Both calls may fail and
// callers are expected to fall back.
type Adapter interface {
	// ExtractName turns a conversational query into a concise product name.
	ExtractName(ctx context.Context, raw string) (string, error)
	// Rank summarizes a page of products and picks up to two highlights.
	Rank(ctx context.Context, products []models.Product, query string) (Insight, error)
}
