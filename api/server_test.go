package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dealhunter/favorites"
	"dealhunter/models"
	"dealhunter/provider"
	"dealhunter/search"
	"dealhunter/storage"
	"dealhunter/suggestion"
)

type fakeSearcher struct {
	resp *search.Response
	err  error
	got  search.Request
}

func (f *fakeSearcher) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	f.got = req
	return f.resp, f.err
}

func newTestServer(t *testing.T, searcher search.Searcher, providers search.ProviderSource) *Server {
	t.Helper()
	kv, err := storage.OpenBolt(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	logger := zap.NewNop()
	if providers == nil {
		providers = provider.NewStaticRegistry([]provider.Config{
			{Name: "eBay", Type: provider.TypeAPI, Enabled: true},
			{Name: "Daraz", Type: provider.TypeScraper, Enabled: true, Countries: []string{"BD"}},
		}, logger)
	}
	h := NewHandlers(searcher, providers,
		suggestion.NewService(kv, logger),
		favorites.NewService(kv, logger),
		20*time.Millisecond, logger)
	return NewServer("127.0.0.1:0", h, logger)
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSearch_OK(t *testing.T) {
	best := "ebay-1"
	searcher := &fakeSearcher{resp: &search.Response{
		Products:     []models.Product{{ItemID: "ebay-1", Title: "Kindle", Label: models.LabelBestChoice}},
		AISummary:    "Here's the deal: buy it.",
		BestChoiceID: &best,
		TotalCount:   1,
		SessionID:    "s1",
		SortBy:       "relevance",
	}}
	srv := newTestServer(t, searcher, nil)

	rec := do(t, srv, http.MethodPost, "/api/search", `{"searchTerm":"kindle","country":"us","maxResults":5,"userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "s1", body["sessionId"])
	assert.Equal(t, "ebay-1", body["bestChoiceId"])
	assert.Nil(t, body["secondBestId"])

	assert.Equal(t, "kindle", searcher.got.SearchTerm)
	assert.Equal(t, 5, searcher.got.MaxResults)
	require.NotNil(t, searcher.got.UserID)
	assert.Equal(t, "u1", *searcher.got.UserID)
}

func TestSearch_RequestIDPropagates(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{resp: &search.Response{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"searchTerm":"kindle"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"missing term", `{"country":"US"}`, nil, http.StatusBadRequest, "searchTerm"},
		{"bad sort", `{"searchTerm":"tv","sortBy":"rating"}`, nil, http.StatusBadRequest, "sortBy"},
		{"negative offset", `{"searchTerm":"tv","offset":-1}`, nil, http.StatusBadRequest, "offset"},
		{"malformed body", `{"searchTerm":`, nil, http.StatusBadRequest, "invalid request body"},
		{"validation from engine", `{"searchTerm":"tv"}`, &search.ValidationError{Field: "searchTerm", Message: "search term is required"}, http.StatusBadRequest, "search term is required"},
		{"unknown session", `{"searchTerm":"tv","sessionId":"gone"}`, search.ErrSessionNotFound, http.StatusNotFound, "session"},
		{"providers not ready", `{"searchTerm":"tv"}`, search.ErrProvidersUnavailable, http.StatusServiceUnavailable, "providers"},
		{"internal", `{"searchTerm":"tv"}`, errors.New("boom: db path /secret"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeSearcher{err: tt.err}, nil)

			rec := do(t, srv, http.MethodPost, "/api/search", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body errorBody
			decode(t, rec, &body)
			assert.Contains(t, body.Error, tt.msg)
			assert.NotContains(t, body.Error, "/secret")
		})
	}
}

func TestCountries(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, nil)

	rec := do(t, srv, http.MethodGet, "/api/search/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var countries []provider.Country
	decode(t, rec, &countries)
	require.Len(t, countries, 2)
	assert.Equal(t, provider.GlobalCode, countries[0].Code)
	assert.Equal(t, "BD", countries[1].Code)
	assert.Len(t, countries[1].Providers, 2)
}

func TestCountries_NotReady(t *testing.T) {
	// never started, so it never becomes ready
	pending := provider.NewRegistry("missing.yaml", zap.NewNop())
	srv := newTestServer(t, &fakeSearcher{}, pending)

	rec := do(t, srv, http.MethodGet, "/api/search/countries", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, nil)

	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSuggestionsEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, nil)

	rec := do(t, srv, http.MethodPost, "/api/suggestions/record", `{"query":"robot vacuum","userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/suggestions?query=robot&userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res suggestion.Result
	decode(t, rec, &res)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, "robot vacuum", res.Suggestions[0].Text)
	assert.Equal(t, suggestion.TypeHistory, res.Suggestions[0].Type)

	rec = do(t, srv, http.MethodGet, "/api/suggestions/trending?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trending struct {
		Trending []suggestion.TopSearch `json:"trending"`
	}
	decode(t, rec, &trending)
	assert.Equal(t, []suggestion.TopSearch{{Query: "robot vacuum", Count: 1}}, trending.Trending)

	rec = do(t, srv, http.MethodGet, "/api/suggestions/trending?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, nil)
	product := `{"itemId":"ebay-1","title":"Kindle","price":"$99.00","source":"eBay"}`

	rec := do(t, srv, http.MethodPost, "/api/favorites/add", `{"userId":"u1","product":`+product+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/favorites/add", `{"userId":"u1","product":`+product+`}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/favorites/add", `{"userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/favorites/user/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Favorites []favorites.Favorite `json:"favorites"`
		Count     int                  `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "eBay_ebay-1", list.Favorites[0].ProductID)

	rec = do(t, srv, http.MethodPost, "/api/favorites/check-status", `{"userId":"u1","products":[`+product+`]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isFavorited":true`)

	rec = do(t, srv, http.MethodPost, "/api/favorites/toggle", `{"userId":"u1","product":`+product+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"removed"`)

	rec = do(t, srv, http.MethodPost, "/api/favorites/remove", `{"userId":"u1","productId":"eBay_ebay-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
