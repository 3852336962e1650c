package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server is the HTTP front of the search engine.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *zap.Logger
}

func NewServer(addr string, h *Handlers, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(requestID())
	e.Use(logRequest(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.CORS())

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/search", h.Search)
	api.GET("/search/countries", h.Countries)

	api.GET("/suggestions", h.Suggestions)
	api.POST("/suggestions/record", h.RecordSearch)
	api.GET("/suggestions/trending", h.TrendingSearches)

	fav := api.Group("/favorites")
	fav.GET("/user/:userId", h.ListFavorites)
	fav.POST("/add", h.AddFavorite)
	fav.POST("/remove", h.RemoveFavorite)
	fav.POST("/toggle", h.ToggleFavorite)
	fav.POST("/check-status", h.CheckFavorites)

	return &Server{echo: e, addr: addr, logger: logger}
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
