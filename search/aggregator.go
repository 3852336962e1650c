package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"dealhunter/crawler"
	"dealhunter/currency"
	"dealhunter/insight"
	"dealhunter/models"
	"dealhunter/provider"
	"dealhunter/relevance"
	"dealhunter/session"
	"dealhunter/telemetry"
)

// ProviderSource yields the provider list once it has been loaded.
type ProviderSource interface {
	Wait(ctx context.Context) ([]provider.Config, error)
}

type Options struct {
	// ReadyTimeout bounds how long a search waits for the provider registry.
	ReadyTimeout      time.Duration
	DefaultCountry    string
	DefaultMaxResults int
	MaxResultsLimit   int
}

func DefaultOptions() Options {
	return Options{
		ReadyTimeout:      5 * time.Second,
		DefaultCountry:    "US",
		DefaultMaxResults: 12,
		MaxResultsLimit:   100,
	}
}

// Aggregator fans a search out to every eligible provider, merges and filters
// the listings, stores them in a session and returns one labelled page.
type Aggregator struct {
	providers ProviderSource
	executor  crawler.Executor
	sessions  session.Store
	insight   insight.Adapter
	metrics   *telemetry.SearchMetrics
	logger    *zap.Logger
	opts      Options
}

// NewAggregator wires the search pipeline. adapter may be nil, which disables
// AI refinement and ranking for every caller.
func NewAggregator(
	providers ProviderSource,
	executor crawler.Executor,
	sessions session.Store,
	adapter insight.Adapter,
	metrics *telemetry.SearchMetrics,
	logger *zap.Logger,
	opts Options,
) *Aggregator {
	defaults := DefaultOptions()
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaults.ReadyTimeout
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = defaults.DefaultCountry
	}
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = defaults.DefaultMaxResults
	}
	if opts.MaxResultsLimit <= 0 {
		opts.MaxResultsLimit = defaults.MaxResultsLimit
	}
	return &Aggregator{
		providers: providers,
		executor:  executor,
		sessions:  sessions,
		insight:   adapter,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

func (a *Aggregator) Search(ctx context.Context, req Request) (*Response, error) {
	req, err := a.normalize(req)
	if err != nil {
		return nil, err
	}

	path := "fresh"
	var resp *Response
	if req.SessionID != "" {
		path = "page"
		resp, err = a.nextPage(ctx, req)
	} else {
		resp, err = a.freshSearch(ctx, req)
	}

	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
	}
	a.metrics.RecordSearch(ctx, path, outcome)
	return resp, err
}

func (a *Aggregator) normalize(req Request) (Request, error) {
	req.SearchTerm = strings.TrimSpace(req.SearchTerm)
	if req.SearchTerm == "" {
		return req, &ValidationError{Field: "searchTerm", Message: "search term is required"}
	}

	// An empty sort on a paginated request keeps the session's current order.
	if req.SortBy != "" || req.SessionID == "" {
		sortBy, ok := session.ParseSortBy(string(req.SortBy))
		if !ok {
			return req, &ValidationError{Field: "sortBy", Message: fmt.Sprintf("unsupported sort %q", req.SortBy)}
		}
		req.SortBy = sortBy
	}

	if req.Offset < 0 {
		return req, &ValidationError{Field: "offset", Message: "offset must not be negative"}
	}
	switch {
	case req.MaxResults < 0:
		return req, &ValidationError{Field: "maxResults", Message: "maxResults must not be negative"}
	case req.MaxResults == 0:
		req.MaxResults = a.opts.DefaultMaxResults
	case req.MaxResults > a.opts.MaxResultsLimit:
		req.MaxResults = a.opts.MaxResultsLimit
	}

	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	if req.Country == "" {
		req.Country = a.opts.DefaultCountry
	}
	if req.UserID != nil && strings.TrimSpace(*req.UserID) == "" {
		req.UserID = nil
	}
	return req, nil
}

func (a *Aggregator) aiEnabled(req Request) bool {
	return req.UserID != nil && a.insight != nil
}

func (a *Aggregator) freshSearch(ctx context.Context, req Request) (*Response, error) {
	logger := crawler.GetContextLogger(ctx, a.logger).With(
		zap.String("search_term", req.SearchTerm),
		zap.String("country", req.Country))

	// ================
	// Refine
	// ================
	refined := req.SearchTerm
	if a.aiEnabled(req) {
		name, err := a.insight.ExtractName(ctx, req.SearchTerm)
		switch {
		case err != nil:
			logger.Warn("query refinement failed, using raw search term", zap.Error(err))
		case strings.TrimSpace(name) != "":
			refined = strings.TrimSpace(name)
		}
	}

	// ================
	// Providers
	// ================
	waitCtx, cancel := context.WithTimeout(ctx, a.opts.ReadyTimeout)
	providers, err := a.providers.Wait(waitCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvidersUnavailable, err)
	}
	if len(providers) == 0 {
		return nil, ErrProvidersUnavailable
	}
	selected := provider.SelectForCountry(providers, req.Country)
	logger.Info("searching providers", zap.String("refined_term", refined), zap.Int("providers", len(selected)))

	// ================
	// Fan-out, filter, convert, sort
	// ================
	// Providers run to completion even if the caller goes away; each executor
	// bounds its own work.
	candidates := a.fanOut(context.WithoutCancel(ctx), selected, refined)
	filtered := relevance.Filter(candidates, req.SearchTerm)
	products := structure(filtered, req.SearchTerm, refined, req.Country)
	session.SortProducts(products, req.SortBy)

	logger.Info("search merged",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(products)))

	// ================
	// Session
	// ================
	id, err := a.sessions.Create(ctx, session.Session{
		Products:          products,
		SearchTerm:        req.SearchTerm,
		RefinedSearchTerm: refined,
		SortBy:            req.SortBy,
		Country:           req.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	page, err := a.sessions.Page(ctx, id, req.SortBy, req.Offset, req.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("read new session: %w", err)
	}
	return a.respond(ctx, page, req), nil
}

func (a *Aggregator) nextPage(ctx context.Context, req Request) (*Response, error) {
	page, err := a.sessions.Page(ctx, req.SessionID, req.SortBy, req.Offset, req.MaxResults)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	return a.respond(ctx, page, req), nil
}

// fanOut runs every provider concurrently and merges their items in provider
// order. Failed providers contribute nothing. When two listings share an item
// id the later one in provider order replaces the earlier in its slot.
func (a *Aggregator) fanOut(ctx context.Context, providers []provider.Config, keywords string) []models.Product {
	results := make([]crawler.Result, len(providers))

	p := pool.New()
	for idx, cfg := range providers {
		i, cfg := idx, cfg
		p.Go(func() {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					results[i] = crawler.Result{
						Provider: cfg.Name,
						Err: &crawler.ProviderError{
							Provider: cfg.Name,
							Stage:    crawler.StagePanic,
							Err:      fmt.Errorf("panic: %v", r),
						},
					}
				}
				a.record(ctx, results[i], time.Since(start))
			}()
			results[i] = a.executor.Execute(ctx, cfg, keywords)
			if results[i].Provider == "" {
				results[i].Provider = cfg.Name
			}
		})
	}
	p.Wait()

	var merged []models.Product
	slots := make(map[string]int)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		for _, p := range res.Products {
			if i, ok := slots[p.ItemID]; ok && p.ItemID != "" {
				merged[i] = p
				continue
			}
			slots[p.ItemID] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged
}

func (a *Aggregator) record(ctx context.Context, res crawler.Result, elapsed time.Duration) {
	if res.Err == nil {
		a.metrics.RecordProvider(ctx, res.Provider, "", len(res.Products), elapsed)
		return
	}

	stage := "unknown"
	var perr *crawler.ProviderError
	if errors.As(res.Err, &perr) {
		stage = string(perr.Stage)
	}
	crawler.GetContextLogger(ctx, a.logger).Warn("provider failed",
		zap.String("provider", res.Provider),
		zap.String("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Error(res.Err))
	a.metrics.RecordProvider(ctx, res.Provider, stage, 0, elapsed)
}

// structure stamps query context and merge rank on each listing and converts
// its price into the country's currency.
func structure(products []models.Product, term, refined, country string) []models.Product {
	out := make([]models.Product, len(products))
	for i, p := range products {
		from := currency.DetectCurrency(p.Price)
		p.OriginalPrice = p.Price
		p.Currency = string(from)
		p.Price = currency.ConvertForCountry(p.Price, from, country)
		p.PriceNumeric = models.ParsePriceNumeric(p.Price)
		p.OriginalSearchTerm = term
		p.RefinedSearchTerm = refined
		p.Rank = i
		p.Label = models.LabelNone
		out[i] = p
	}
	return out
}

func (a *Aggregator) respond(ctx context.Context, page session.Page, req Request) *Response {
	resp := &Response{
		Products:           page.Products,
		TotalCount:         page.Total,
		SessionID:          page.SessionID,
		OriginalSearchTerm: page.SearchTerm,
		RefinedSearchTerm:  page.RefinedSearchTerm,
		SortBy:             page.SortBy,
		Offset:             page.Offset,
		HasMore:            page.HasMore(),
		AIDisabled:         !a.aiEnabled(req),
	}
	if resp.Products == nil {
		resp.Products = []models.Product{}
	}
	if len(resp.Products) == 0 {
		resp.AISummary = insight.NoListingsSummary
		return resp
	}

	picks := a.rank(ctx, resp.Products, page, req)
	applyLabels(resp.Products, picks.BestChoiceID, picks.SecondBestID)

	resp.AISummary = picks.Summary
	resp.BestChoiceID = optional(picks.BestChoiceID)
	resp.SecondBestID = optional(picks.SecondBestID)
	return resp
}

func (a *Aggregator) rank(ctx context.Context, products []models.Product, page session.Page, req Request) insight.Insight {
	query := page.RefinedSearchTerm
	if query == "" {
		query = page.SearchTerm
	}

	if !a.aiEnabled(req) {
		picks := fallbackInsight(products, query)
		picks.Summary = signInSummary
		return picks
	}

	ai, err := a.insight.Rank(ctx, products, query)
	if err != nil {
		crawler.GetContextLogger(ctx, a.logger).Warn("ai ranking failed, using price fallback",
			zap.String("session_id", page.SessionID),
			zap.Error(err))
		return fallbackInsight(products, query)
	}
	return reconcile(ai, products)
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrProvidersUnavailable):
		return "providers_unavailable"
	default:
		return "error"
	}
}
