package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dealhunter/crawler"
	"dealhunter/favorites"
	"dealhunter/provider"
	"dealhunter/search"
	"dealhunter/session"
	"dealhunter/suggestion"
)

// Handlers serves the HTTP endpoints. Suggestions and favorites are optional
// and answer 503 when not configured.
type Handlers struct {
	searcher     search.Searcher
	providers    search.ProviderSource
	suggestions  *suggestion.Service
	favorites    *favorites.Service
	readyTimeout time.Duration
	logger       *zap.Logger
}

func NewHandlers(
	searcher search.Searcher,
	providers search.ProviderSource,
	suggestions *suggestion.Service,
	favs *favorites.Service,
	readyTimeout time.Duration,
	logger *zap.Logger,
) *Handlers {
	if readyTimeout <= 0 {
		readyTimeout = 5 * time.Second
	}
	return &Handlers{
		searcher:     searcher,
		providers:    providers,
		suggestions:  suggestions,
		favorites:    favs,
		readyTimeout: readyTimeout,
		logger:       logger,
	}
}

type searchRequest struct {
	SearchTerm string  `json:"searchTerm" validate:"required"`
	Country    string  `json:"country"`
	MaxResults int     `json:"maxResults" validate:"gte=0"`
	SortBy     string  `json:"sortBy" validate:"omitempty,oneof=relevance price"`
	Offset     int     `json:"offset" validate:"gte=0"`
	SessionID  string  `json:"sessionId"`
	UserID     *string `json:"userId"`
}

func (h *Handlers) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	resp, err := h.searcher.Search(ctx, search.Request{
		SearchTerm: req.SearchTerm,
		Country:    req.Country,
		MaxResults: req.MaxResults,
		SortBy:     session.SortBy(req.SortBy),
		Offset:     req.Offset,
		SessionID:  req.SessionID,
		UserID:     req.UserID,
	})
	if err != nil {
		return h.searchError(ctx, err, req)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) searchError(ctx context.Context, err error, req searchRequest) error {
	var verr *search.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Message).SetInternal(err)
	case errors.Is(err, search.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Search session not found or expired. Please search again.").SetInternal(err)
	case errors.Is(err, search.ErrProvidersUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search providers are not available yet. Please try again shortly.").SetInternal(err)
	}

	crawler.GetContextLogger(ctx, h.logger).Error("search failed",
		zap.String("search_term", req.SearchTerm),
		zap.String("country", req.Country),
		zap.Error(err))
	return err
}

func (h *Handlers) Countries(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.readyTimeout)
	defer cancel()

	providers, err := h.providers.Wait(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search providers are not available yet. Please try again shortly.").SetInternal(err)
	}
	return c.JSON(http.StatusOK, provider.Countries(providers))
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dealhunter",
	})
}
