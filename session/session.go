package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"dealhunter/models"
)

// SortBy is the ordering applied to a session's product list.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortPrice     SortBy = "price"
)

// ParseSortBy returns the ordering for a request value, defaulting to relevance.
func ParseSortBy(s string) (SortBy, bool) {
	switch SortBy(s) {
	case "", SortRelevance:
		return SortRelevance, true
	case SortPrice:
		return SortPrice, true
	default:
		return "", false
	}
}

var ErrNotFound = errors.New("session not found")

// Session is the materialized result set of one search.
type Session struct {
	ID                string
	Products          []models.Product
	SearchTerm        string
	RefinedSearchTerm string
	SortBy            SortBy
	Country           string
	CreatedAt         time.Time
	LastAccess        time.Time
}

// Page is one slice of a session's products together with the session's query
// context.
type Page struct {
	SessionID         string
	Products          []models.Product
	Total             int
	Offset            int
	SearchTerm        string
	RefinedSearchTerm string
	SortBy            SortBy
	Country           string
}

// HasMore reports whether products exist beyond this page.
func (p Page) HasMore() bool {
	return p.Offset+len(p.Products) < p.Total
}

// Store keeps search sessions for paginated retrieval.
type Store interface {
	// Create stores a new session and returns its id.
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	// Page returns products [offset, offset+limit) of the session, re-sorting
	// the stored list first when sortBy differs from the stored order.
	Page(ctx context.Context, id string, sortBy SortBy, offset, limit int) (Page, error)
	Len() int
	// Sweep removes sessions the eviction policy considers expired.
	Sweep(now time.Time) int
}

// SortProducts orders products in place. Price order is ascending by the
// numeric price; relevance order restores the merge order. Both are stable.
func SortProducts(products []models.Product, sortBy SortBy) {
	switch sortBy {
	case SortPrice:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].PriceNumeric < products[j].PriceNumeric
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rank < products[j].Rank
		})
	}
}
