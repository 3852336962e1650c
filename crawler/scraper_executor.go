package crawler

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"dealhunter/provider"
)

// ScraperExecutor renders a provider's search page and extracts product cards
// through the provider's selector map.
type ScraperExecutor struct {
	browser Renderer
	static  Renderer
	// pageTimeout bounds loading the page; the provider's card wait is added on top.
	pageTimeout time.Duration
	logger      *zap.Logger
}

func NewScraperExecutor(browser, static Renderer, pageTimeout time.Duration, logger *zap.Logger) *ScraperExecutor {
	if pageTimeout <= 0 {
		pageTimeout = DefaultConfig().RequestTimeout
	}
	return &ScraperExecutor{
		browser:     browser,
		static:      static,
		pageTimeout: pageTimeout,
		logger:      logger,
	}
}

func (s *ScraperExecutor) Execute(ctx context.Context, cfg provider.Config, keywords string) Result {
	logger := GetContextLogger(ctx, s.logger).With(zap.String("provider", cfg.Name))
	if cfg.Scraper == nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageConfig, errors.New("missing scraper config"))}
	}
	sc := cfg.Scraper

	renderer := s.browser
	if sc.Render == provider.RenderStatic {
		renderer = s.static
	}
	if renderer == nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageConfig, errors.New("no renderer for mode "+string(sc.Render)))}
	}

	searchURL := strings.ReplaceAll(sc.SearchURL, KeywordsPlaceholder, escapeKeywords(keywords))
	logger.Info("scraping provider", zap.String("url", searchURL), zap.String("render", string(sc.Render)))

	renderCtx, cancel := context.WithTimeout(ctx, s.pageTimeout+sc.WaitTimeout)
	defer cancel()

	html, err := renderer.Render(renderCtx, searchURL, sc.CardSelector, sc.WaitTimeout)
	if err != nil {
		stage := StageRender
		if errors.Is(err, ErrCardsNotFound) {
			stage = StageWait
		}
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, stage, err)}
	}

	products, dropped, err := ExtractCards(html, cfg.Name, sc)
	if err != nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageExtract, err)}
	}
	if dropped > 0 {
		logger.Debug("dropped incomplete product cards", zap.Int("dropped", dropped))
	}

	logger.Info("scraped provider", zap.Int("count", len(products)))
	return Result{Provider: cfg.Name, Products: products}
}
