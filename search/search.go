package search

import (
	"context"

	"dealhunter/models"
	"dealhunter/session"
)

// Request is one search or pagination call. A non-empty SessionID pages through
// an existing result set instead of querying providers.
type Request struct {
	SearchTerm string         `json:"searchTerm"`
	Country    string         `json:"country,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	SortBy     session.SortBy `json:"sortBy,omitempty"`
	Offset     int            `json:"offset,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	// UserID is nil for anonymous callers, who never trigger AI calls.
	UserID *string `json:"userId,omitempty"`
}

type Response struct {
	Products           []models.Product `json:"products"`
	AISummary          string           `json:"aiSummary"`
	BestChoiceID       *string          `json:"bestChoiceId"`
	SecondBestID       *string          `json:"secondBestId"`
	TotalCount         int              `json:"totalCount"`
	SessionID          string           `json:"sessionId"`
	OriginalSearchTerm string           `json:"originalSearchTerm"`
	RefinedSearchTerm  string           `json:"refinedSearchTerm"`
	SortBy             session.SortBy   `json:"sortBy"`
	Offset             int              `json:"offset"`
	HasMore            bool             `json:"hasMore"`
	AIDisabled         bool             `json:"aiDisabled"`
}

type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}
