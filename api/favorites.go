package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dealhunter/crawler"
	"dealhunter/favorites"
)

type favoriteRequest struct {
	UserID  string             `json:"userId" validate:"required"`
	Product *favorites.Product `json:"product" validate:"required"`
}

type removeFavoriteRequest struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
}

type checkStatusRequest struct {
	UserID   string              `json:"userId" validate:"required"`
	Products []favorites.Product `json:"products" validate:"required"`
}

func (h *Handlers) favoritesEnabled() error {
	if h.favorites == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Favorites are not available.")
	}
	return nil
}

func (h *Handlers) ListFavorites(c echo.Context) error {
	if err := h.favoritesEnabled(); err != nil {
		return err
	}
	userID := c.Param("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "User ID is required")
	}

	ctx := c.Request().Context()
	list, err := h.favorites.List(ctx, userID)
	if err != nil {
		crawler.GetContextLogger(ctx, h.logger).Error("list favorites failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if list == nil {
		list = []favorites.Favorite{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"favorites": list,
		"count":     len(list),
	})
}

func (h *Handlers) AddFavorite(c echo.Context) error {
	if err := h.favoritesEnabled(); err != nil {
		return err
	}
	var req favoriteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	fav, err := h.favorites.Add(c.Request().Context(), req.UserID, *req.Product)
	if errors.Is(err, favorites.ErrAlreadyFavorite) {
		return echo.NewHTTPError(http.StatusConflict, "Product already in favorites").SetInternal(err)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "favorite": fav})
}

func (h *Handlers) RemoveFavorite(c echo.Context) error {
	if err := h.favoritesEnabled(); err != nil {
		return err
	}
	var req removeFavoriteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	err := h.favorites.Remove(c.Request().Context(), req.UserID, req.ProductID)
	if errors.Is(err, favorites.ErrNotFavorite) {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found in favorites").SetInternal(err)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Product removed from favorites"})
}

func (h *Handlers) ToggleFavorite(c echo.Context) error {
	if err := h.favoritesEnabled(); err != nil {
		return err
	}
	var req favoriteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	added, fav, err := h.favorites.Toggle(c.Request().Context(), req.UserID, *req.Product)
	if err != nil {
		return err
	}
	action := "removed"
	if added {
		action = "added"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"action":      action,
		"isFavorited": added,
		"favorite":    fav,
	})
}

func (h *Handlers) CheckFavorites(c echo.Context) error {
	if err := h.favoritesEnabled(); err != nil {
		return err
	}
	var req checkStatusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	statuses := h.favorites.CheckStatus(c.Request().Context(), req.UserID, req.Products)
	return c.JSON(http.StatusOK, map[string]any{
		"success":          true,
		"favoriteStatuses": statuses,
	})
}
