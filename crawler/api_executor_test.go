package crawler

import (
	"context"
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

const ebayResponse = `{
  "findItemsByKeywordsResponse": [{
    "searchResult": [{
      "item": [
        {
          "itemId": ["1001"],
          "title": ["ASUS Gaming Laptop X"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "1299.00"}]}],
          "galleryURL": ["https://img.example.com/1001.jpg"],
          "viewItemURL": ["https://www.ebay.com/itm/1001"]
        },
        {
          "itemId": ["1002"],
          "title": ["Gaming Laptop Stand"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "25.50"}]}]
        },
        {
          "itemId": ["1003"],
          "title": ["Laptop Sleeve"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "12.00"}]}]
        }
      ]
    }]
  }]
}`

func ebayConfig(apiURL string) provider.Config {
	return provider.Config{
		Name:    "eBay",
		Type:    provider.TypeAPI,
		Enabled: true,
		API: &provider.APIConfig{
			URL:    apiURL,
			Method: http.MethodGet,
			Params: map[string]string{
				"keywords":         KeywordsPlaceholder,
				"SECURITY-APPNAME": "${EBAY_APP_ID}",
			},
			Mapper: provider.APIMapper{
				ItemsPath: "findItemsByKeywordsResponse[0].searchResult[0].item",
				Fields: map[string]string{
					"itemId":      "itemId",
					"title":       "title[0]",
					"price":       "sellingStatus[0].currentPrice[0]",
					"galleryURL":  "galleryURL[0]",
					"viewItemURL": "viewItemURL",
				},
			},
			MaxResults: 2,
			Timeout:    5 * time.Second,
		},
	}
}

func TestAPIExecutor_Execute(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"keywords":         r.URL.Query().Get("keywords"),
			"SECURITY-APPNAME": r.URL.Query().Get("SECURITY-APPNAME"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, ebayResponse)
	}))
	defer server.Close()

	exec := NewAPIExecutor(server.Client(), zap.NewNop())
	exec.getenv = func(key string) string {
		if key == "EBAY_APP_ID" {
			return "app-123"
		}
		return ""
	}

	result := exec.Execute(context.Background(), ebayConfig(server.URL), "gaming laptop")
	require.NoError(t, result.Err)
	assert.Equal(t, "eBay", result.Provider)
	assert.Equal(t, map[string]string{"keywords": "gaming laptop", "SECURITY-APPNAME": "app-123"}, gotQuery)

	require.Len(t, result.Products, 2)
	first := result.Products[0]
	assert.Equal(t, "ebay-1001", first.ItemID)
	assert.Equal(t, "ASUS Gaming Laptop X", first.Title)
	assert.Equal(t, "1299.00 USD", first.Price)
	assert.Equal(t, "eBay", first.Source)
	assert.Equal(t, "https://img.example.com/1001.jpg", first.GalleryURL)
	assert.Equal(t, "https://www.ebay.com/itm/1001", first.ViewItemURL)

	assert.Equal(t, "ebay-1002", result.Products[1].ItemID)
	assert.Empty(t, result.Products[1].GalleryURL)
}

func TestAPIExecutor_NonArrayItemsIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"findItemsByKeywordsResponse": [{"searchResult": [{"item": {"itemId": "1"}}]}]}`)
	}))
	defer server.Close()

	result := NewAPIExecutor(server.Client(), zap.NewNop()).
		Execute(context.Background(), ebayConfig(server.URL), "laptop")

	var perr *ProviderError
	require.ErrorAs(t, result.Err, &perr)
	assert.Equal(t, StageDecode, perr.Stage)
	assert.Equal(t, "eBay", perr.Provider)
	assert.Empty(t, result.Products)
}

func TestAPIExecutor_ErrorStatusIsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	result := NewAPIExecutor(server.Client(), zap.NewNop()).
		Execute(context.Background(), ebayConfig(server.URL), "laptop")

	var perr *ProviderError
	require.ErrorAs(t, result.Err, &perr)
	assert.Equal(t, StageRequest, perr.Stage)
	assert.Contains(t, perr.Error(), "429")
}

func TestAPIExecutor_PostSendsJSONBody(t *testing.T) {
	var gotBody string
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeader = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"data": {"products": [{"id": 7, "name": "Mechanical Keyboard", "price": {"amount": 49.99, "currencyCode": "EUR"}}]}}`)
	}))
	defer server.Close()

	cfg := provider.Config{
		Name: "Shop",
		Type: provider.TypeAPI,
		API: &provider.APIConfig{
			URL:     server.URL,
			Method:  http.MethodPost,
			Params:  map[string]string{"query": KeywordsPlaceholder},
			Headers: map[string]string{"Authorization": "Bearer ${SHOP_TOKEN}"},
			Mapper: provider.APIMapper{
				ItemsPath: "data.products",
				Fields:    map[string]string{"itemId": "id", "title": "name", "price": "price"},
			},
			MaxResults: 30,
			Timeout:    5 * time.Second,
		},
	}

	exec := NewAPIExecutor(server.Client(), zap.NewNop())
	exec.getenv = func(string) string { return "secret" }

	result := exec.Execute(context.Background(), cfg, "keyboard")
	require.NoError(t, result.Err)
	assert.JSONEq(t, `{"query": "keyboard"}`, gotBody)
	assert.Equal(t, "Bearer secret", gotHeader)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "shop-7", result.Products[0].ItemID)
	assert.Equal(t, "49.99 EUR", result.Products[0].Price)
}

func TestToGJSONPath(t *testing.T) {
	testCases := []struct {
		in, out string
	}{
		{"a.b", "a.b"},
		{"a[0].b[1]", "a.0.b.1"},
		{"[0].title", "0.title"},
		{"price.@currencyId", `price.\@currencyId`},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.out, toGJSONPath(tc.in), tc.in)
	}
}

func TestDispatcher_RoutesByType(t *testing.T) {
	api := &stubExecutor{name: "api"}
	scraper := &stubExecutor{name: "scraper"}
	d := NewDispatcher(api, scraper)

	d.Execute(context.Background(), provider.Config{Name: "a", Type: provider.TypeAPI}, "x")
	d.Execute(context.Background(), provider.Config{Name: "s", Type: provider.TypeScraper}, "x")
	res := d.Execute(context.Background(), provider.Config{Name: "u", Type: "ftp"}, "x")

	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 1, scraper.calls)
	var perr *ProviderError
	require.ErrorAs(t, res.Err, &perr)
	assert.Equal(t, StageConfig, perr.Stage)
}

type stubExecutor struct {
	name  string
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, cfg provider.Config, keywords string) Result {
	s.calls++
	return Result{Provider: cfg.Name}
}
