package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticRenderer fetches server-rendered search pages without a browser.
type StaticRenderer struct {
	transport http.RoundTripper
	userAgent string
	logger    *zap.Logger
}

func NewStaticRenderer(client *http.Client, cfg *CrawlerConfig, logger *zap.Logger) *StaticRenderer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var transport http.RoundTripper = http.DefaultTransport
	if client != nil && client.Transport != nil {
		transport = client.Transport
	}
	return &StaticRenderer{
		transport: transport,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (s *StaticRenderer) Render(ctx context.Context, pageURL, cardSelector string, wait time.Duration) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(s.transport)
	c.SetRequestTimeout(wait)

	var body string
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		GetContextLogger(ctx, s.logger).Info("Visited search page",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode))
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		GetContextLogger(ctx, s.logger).Warn("Failed to fetch search page",
			zap.String("url", pageURL),
			zap.Int("status", r.StatusCode),
			zap.Error(err))
	})

	err := c.Visit(pageURL)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	if doc.Find(cardSelector).Length() == 0 {
		return "", fmt.Errorf("%w: no match for %q", ErrCardsNotFound, cardSelector)
	}
	return body, nil
}
