package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserRenderer renders search pages in headless Chrome.
type BrowserRenderer struct {
	logger          *zap.Logger
	ChromedpOptions []chromedp.ExecAllocatorOption
	// navTimeout bounds navigation up to the page's load event.
	navTimeout time.Duration
}

func NewBrowserRenderer(logger *zap.Logger, cfg *CrawlerConfig) *BrowserRenderer {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(cfg.UserAgent),

		// Stealth options
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	navTimeout := cfg.RequestTimeout
	if navTimeout <= 0 {
		navTimeout = DefaultConfig().RequestTimeout
	}

	return &BrowserRenderer{
		logger:          logger,
		ChromedpOptions: opts,
		navTimeout:      navTimeout,
	}
}

func (b *BrowserRenderer) Render(ctx context.Context, pageURL, cardSelector string, wait time.Duration) (string, error) {
	// ================
	// Browser Context
	// ================
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	logger := GetContextLogger(ctx, b.logger)
	logger.Info("Navigating to search page", zap.String("url", pageURL))

	// The browser is started on taskCtx so the navigation deadline does not
	// tear it down.
	if err := chromedp.Run(taskCtx); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(taskCtx, b.navTimeout)
	err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`, nil),
	)
	navCancel()
	if err != nil {
		return "", fmt.Errorf("navigation failed after %s: %w", b.navTimeout, err)
	}

	// ================
	// Wait for cards
	// ================
	waitCtx, waitCancel := context.WithTimeout(taskCtx, wait)
	defer waitCancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(cardSelector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			var title string
			_ = chromedp.Run(taskCtx, chromedp.Title(&title))
			logger.Warn("Product cards did not appear",
				zap.String("selector", cardSelector),
				zap.String("title", title),
				zap.Duration("wait", wait))
			return "", fmt.Errorf("%w: waited %s for %q", ErrCardsNotFound, wait, cardSelector)
		}
		return "", fmt.Errorf("wait for cards: %w", err)
	}

	var domHTML string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &domHTML, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture page html: %w", err)
	}

	logger.Info("Captured search page", zap.Int("dom_length", len(domHTML)))
	return domHTML, nil
}
