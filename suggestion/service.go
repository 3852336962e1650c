package suggestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dealhunter/storage"
)

const (
	bucket      = "suggestions"
	catalogKey  = "catalog"
	historyKey  = "history"
	maxHistory  = 1000
	maxTrending = 10
	trendWindow = 7 * 24 * time.Hour
	minQueryLen = 2
)

const (
	TypeHistory  = "history"
	TypeTrending = "trending"
	TypePopular  = "popular"
	TypeCategory = "category"
)

var scores = map[string]int{
	TypeHistory:  4,
	TypeTrending: 3,
	TypePopular:  2,
	TypeCategory: 1,
}

type Suggestion struct {
	Text     string `json:"text"`
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Score    int    `json:"score"`
}

// Result is either an overview (for short queries) or a scored match list.
type Result struct {
	Trending    []string     `json:"trending,omitempty"`
	Popular     []string     `json:"popular,omitempty"`
	UserHistory []string     `json:"userHistory,omitempty"`
	Categories  []string     `json:"categories,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	HasMore     bool         `json:"hasMore"`
}

type TopSearch struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Service offers search-as-you-type suggestions backed by a KV file.
type Service struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewService(kv storage.KV, logger *zap.Logger) *Service {
	return &Service{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
}

// Suggestions returns an overview for queries shorter than two characters and
// scored matches otherwise.
func (s *Service) Suggestions(ctx context.Context, query, userID string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	catalog, err := s.loadCatalog()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	history, err := s.loadHistory()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLen {
		res := &Result{
			Trending:   head(catalog.Trending, 5),
			Popular:    head(catalog.Popular, 5),
			Categories: head(categoryNames(catalog.Categories), 5),
		}
		if userID != "" {
			res.UserHistory = head(userHistory(history, userID, 10), 3)
		}
		return res, nil
	}

	var results []Suggestion
	if userID != "" {
		for _, q := range userHistory(history, userID, 10) {
			if matches(q, query) {
				results = append(results, Suggestion{Text: q, Type: TypeHistory, Score: scores[TypeHistory]})
			}
		}
	}
	for _, item := range catalog.Trending {
		if matches(item, query) {
			results = append(results, Suggestion{Text: item, Type: TypeTrending, Score: scores[TypeTrending]})
		}
	}
	for _, item := range catalog.Popular {
		if matches(item, query) {
			results = append(results, Suggestion{Text: item, Type: TypePopular, Score: scores[TypePopular]})
		}
	}
	for _, c := range catalog.Categories {
		for _, item := range c.Items {
			if matches(item, query) {
				results = append(results, Suggestion{Text: item, Type: TypeCategory, Category: c.Name, Score: scores[TypeCategory]})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	seen := make(map[string]bool)
	unique := make([]Suggestion, 0, limit)
	for _, r := range results {
		key := strings.ToLower(r.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(unique) < limit {
			unique = append(unique, r)
		}
	}

	return &Result{Suggestions: unique, HasMore: len(results) > limit}, nil
}

// Record logs a search and refreshes the trending list. Queries shorter than
// two characters are ignored.
func (s *Service) Record(ctx context.Context, query, userID string) error {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLen {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}

	now := s.now()
	history.Searches = append([]Entry{{Query: query, Timestamp: now.UnixMilli(), UserID: userID}}, history.Searches...)
	if len(history.Searches) > maxHistory {
		history.Searches = history.Searches[:maxHistory]
	}
	history.PopularSearches[strings.ToLower(query)]++

	if err := storage.PutJSON(s.kv, bucket, historyKey, history); err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	return s.refreshTrending(history, now)
}

func (s *Service) refreshTrending(history History, now time.Time) error {
	cutoff := now.Add(-trendWindow).UnixMilli()

	counts := make(map[string]int)
	var order []string
	for _, e := range history.Searches {
		if e.Timestamp <= cutoff {
			continue
		}
		q := strings.ToLower(e.Query)
		if counts[q] == 0 {
			order = append(order, q)
		}
		counts[q]++
	}
	if len(order) == 0 {
		return nil
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	catalog.Trending = head(dedupe(append(head(order, maxTrending), catalog.Trending...)), maxTrending)

	if err := storage.PutJSON(s.kv, bucket, catalogKey, catalog); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return nil
}

// TopSearches returns the most frequently recorded queries.
func (s *Service) TopSearches(ctx context.Context, limit int) ([]TopSearch, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	history, err := s.loadHistory()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	top := make([]TopSearch, 0, len(history.PopularSearches))
	for q, n := range history.PopularSearches {
		top = append(top, TopSearch{Query: q, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Query < top[j].Query
	})
	return head(top, limit), nil
}

func (s *Service) loadCatalog() (Catalog, error) {
	var c Catalog
	err := storage.GetJSON(s.kv, bucket, catalogKey, &c)
	if errors.Is(err, storage.ErrNotFound) {
		return defaultCatalog(), nil
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("load suggestions: %w", err)
	}
	return c, nil
}

func (s *Service) loadHistory() (History, error) {
	var h History
	err := storage.GetJSON(s.kv, bucket, historyKey, &h)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return History{}, fmt.Errorf("load search history: %w", err)
	}
	if h.PopularSearches == nil {
		h.PopularSearches = make(map[string]int)
	}
	return h, nil
}

// userHistory returns the user's distinct queries, newest first.
func userHistory(h History, userID string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range h.Searches {
		if e.UserID != userID || seen[e.Query] {
			continue
		}
		seen[e.Query] = true
		out = append(out, e.Query)
		if len(out) == limit {
			break
		}
	}
	return out
}

func categoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

func dedupe(items []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
