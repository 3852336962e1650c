package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dealhunter/crawler"
)

type suggestionsQuery struct {
	Query  string `query:"query"`
	UserID string `query:"userId"`
	Limit  int    `query:"limit" validate:"gte=0,lte=50"`
}

func (h *Handlers) Suggestions(c echo.Context) error {
	if h.suggestions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Suggestions are not available.")
	}

	var q suggestionsQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := c.Validate(q); err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.suggestions.Suggestions(ctx, q.Query, q.UserID, q.Limit)
	if err != nil {
		crawler.GetContextLogger(ctx, h.logger).Error("suggestions failed", zap.String("query", q.Query), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get suggestions").SetInternal(err)
	}
	return c.JSON(http.StatusOK, res)
}

type recordRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

func (h *Handlers) RecordSearch(c echo.Context) error {
	if h.suggestions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Suggestions are not available.")
	}

	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.suggestions.Record(ctx, req.Query, req.UserID); err != nil {
		crawler.GetContextLogger(ctx, h.logger).Error("record search failed", zap.String("query", req.Query), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to record search").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type trendingQuery struct {
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

func (h *Handlers) TrendingSearches(c echo.Context) error {
	if h.suggestions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Suggestions are not available.")
	}

	var q trendingQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := c.Validate(q); err != nil {
		return err
	}

	ctx := c.Request().Context()
	top, err := h.suggestions.TopSearches(ctx, q.Limit)
	if err != nil {
		crawler.GetContextLogger(ctx, h.logger).Error("trending searches failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get trending searches").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"trending": top})
}
