package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dealhunter/provider"
)

const searchPage = `<html><body>
<div class="card" data-id="A1">
  <a class="link" href="/products/a1" title="Walton Gaming Laptop">Walton Gaming Laptop</a>
  <span class="price"> ৳ 85,000 </span>
  <img src="//img.example.com/a1.jpg">
</div>
<div class="card" data-id="A2">
  <a class="link" href="https://shop.example.com/products/a2" title="Laptop Bag">Laptop Bag</a>
</div>
<div class="card" data-id="A3">
  <a class="link" href="/products/a3" title="Cooling Pad">Cooling Pad</a>
  <span class="price">৳ 1,200</span>
</div>
<div class="card" data-id="A4">
  <a class="link" href="/products/a4" title="Mouse">Mouse</a>
  <span class="price">৳ 500</span>
</div>
</body></html>`

func darazScraper(render provider.RenderMode) *provider.ScraperConfig {
	return &provider.ScraperConfig{
		SearchURL:    "https://shop.example.com/catalog/?q=__KEYWORDS__",
		BaseURL:      "https://shop.example.com",
		CardSelector: "div.card",
		Render:       render,
		MaxResults:   3,
		WaitTimeout:  time.Second,
		Mapper: provider.ScraperMapper{Fields: map[string]provider.FieldSelector{
			"itemId":      {Selector: "", Attribute: "data-id"},
			"title":       {Selector: "a.link", Attribute: "title"},
			"price":       {Selector: "span.price"},
			"viewItemURL": {Selector: "a.link", Attribute: "href"},
			"galleryURL":  {Selector: "img", Attribute: "src"},
		}},
	}
}

func TestExtractCards(t *testing.T) {
	products, dropped, err := ExtractCards(searchPage, "Daraz", darazScraper(provider.RenderBrowser))
	require.NoError(t, err)

	assert.Equal(t, 1, dropped)
	require.Len(t, products, 2)

	assert.Equal(t, "daraz-A1", products[0].ItemID)
	assert.Equal(t, "Walton Gaming Laptop", products[0].Title)
	assert.Equal(t, "৳ 85,000", products[0].Price)
	assert.Equal(t, "Daraz", products[0].Source)
	assert.Equal(t, "https://shop.example.com/products/a1", products[0].ViewItemURL)
	assert.Equal(t, "https://img.example.com/a1.jpg", products[0].GalleryURL)

	assert.Equal(t, "daraz-A3", products[1].ItemID)
	assert.Empty(t, products[1].GalleryURL)
}

type fakeRenderer struct {
	html    string
	err     error
	gotURL  string
	gotWait time.Duration
}

func (f *fakeRenderer) Render(ctx context.Context, pageURL, cardSelector string, wait time.Duration) (string, error) {
	f.gotURL = pageURL
	f.gotWait = wait
	return f.html, f.err
}

func TestScraperExecutor_Execute(t *testing.T) {
	browser := &fakeRenderer{html: searchPage}
	exec := NewScraperExecutor(browser, nil, time.Second, zap.NewNop())

	cfg := provider.Config{Name: "Daraz", Type: provider.TypeScraper, Scraper: darazScraper(provider.RenderBrowser)}
	result := exec.Execute(context.Background(), cfg, "gaming laptop")

	require.NoError(t, result.Err)
	assert.Len(t, result.Products, 2)
	assert.Equal(t, "https://shop.example.com/catalog/?q=gaming%20laptop", browser.gotURL)
	assert.Equal(t, time.Second, browser.gotWait)
}

func TestScraperExecutor_WaitTimeoutIsRecoverable(t *testing.T) {
	browser := &fakeRenderer{err: fmt.Errorf("%w: waited 1s", ErrCardsNotFound)}
	exec := NewScraperExecutor(browser, nil, time.Second, zap.NewNop())

	cfg := provider.Config{Name: "Daraz", Type: provider.TypeScraper, Scraper: darazScraper(provider.RenderBrowser)}
	result := exec.Execute(context.Background(), cfg, "laptop")

	var perr *ProviderError
	require.ErrorAs(t, result.Err, &perr)
	assert.Equal(t, StageWait, perr.Stage)
	assert.Empty(t, result.Products)
}

type stalledRenderer struct{}

func (stalledRenderer) Render(ctx context.Context, pageURL, cardSelector string, wait time.Duration) (string, error) {
	<-ctx.Done()
	return "", fmt.Errorf("navigation failed: %w", ctx.Err())
}

func TestScraperExecutor_PageThatNeverLoadsTimesOut(t *testing.T) {
	exec := NewScraperExecutor(stalledRenderer{}, nil, 20*time.Millisecond, zap.NewNop())

	sc := darazScraper(provider.RenderBrowser)
	sc.WaitTimeout = 10 * time.Millisecond

	done := make(chan Result, 1)
	go func() {
		done <- exec.Execute(context.Background(), provider.Config{Name: "Daraz", Type: provider.TypeScraper, Scraper: sc}, "laptop")
	}()

	select {
	case result := <-done:
		var perr *ProviderError
		require.ErrorAs(t, result.Err, &perr)
		assert.Equal(t, StageRender, perr.Stage)
		assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("scraper did not give up on a stalled page")
	}
}

func TestNewBrowserRenderer_NavigationTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, NewBrowserRenderer(zap.NewNop(), cfg).navTimeout)

	cfg.RequestTimeout = 0
	assert.Equal(t, DefaultConfig().RequestTimeout, NewBrowserRenderer(zap.NewNop(), cfg).navTimeout)
}

func TestScraperExecutor_StaticRender(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cooling pad", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, searchPage)
	}))
	defer server.Close()

	sc := darazScraper(provider.RenderStatic)
	sc.SearchURL = server.URL + "/catalog/?q=__KEYWORDS__"
	sc.BaseURL = server.URL

	static := NewStaticRenderer(server.Client(), nil, zap.NewNop())
	exec := NewScraperExecutor(nil, static, time.Second, zap.NewNop())

	result := exec.Execute(context.Background(), provider.Config{Name: "Daraz", Type: provider.TypeScraper, Scraper: sc}, "cooling pad")
	require.NoError(t, result.Err)
	require.Len(t, result.Products, 2)
	assert.Equal(t, server.URL+"/products/a1", result.Products[0].ViewItemURL)
}

func TestStaticRenderer_MissingCards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><body><p>No results</p></body></html>")
	}))
	defer server.Close()

	static := NewStaticRenderer(server.Client(), nil, zap.NewNop())
	_, err := static.Render(context.Background(), server.URL, "div.card", time.Second)
	assert.ErrorIs(t, err, ErrCardsNotFound)
}
