package crawler

import (
	"context"
	"errors"
	"time"
)

// ErrCardsNotFound means the product card selector never matched within the
// wait bound.
var ErrCardsNotFound = errors.New("product cards not found")

// Renderer fetches a search page and returns its HTML once the card selector
// is present.
type Renderer interface {
	Render(ctx context.Context, pageURL, cardSelector string, wait time.Duration) (string, error)
}
