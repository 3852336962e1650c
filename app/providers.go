package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"dealhunter/api"
	"dealhunter/config"
	"dealhunter/crawler"
	"dealhunter/favorites"
	"dealhunter/insight"
	"dealhunter/provider"
	"dealhunter/search"
	"dealhunter/session"
	"dealhunter/storage"
	"dealhunter/suggestion"
	"dealhunter/telemetry"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newTelemetry(lc fx.Lifecycle, cfg *config.Config) (*telemetry.Provider, error) {
	t := cfg.Telemetry
	p, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Enabled:         t.Enabled,
		OTLPEndpoint:    t.OTLPEndpoint,
		OTLPInsecure:    t.OTLPInsecure,
		MetricInterval:  t.MetricInterval,
		ShutdownTimeout: t.ShutdownTimeout,
		ServiceName:     t.ServiceName,
		Environment:     t.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, t.ShutdownTimeout)
			defer cancel()
			return p.Shutdown(ctx)
		},
	})
	return p, nil
}

func newSearchMetrics(p *telemetry.Provider) (*telemetry.SearchMetrics, error) {
	return telemetry.NewSearchMetrics(p.Meter("dealhunter/search"))
}

func newStorage(lc fx.Lifecycle, cfg *config.Config) (*storage.BoltStore, error) {
	store, err := storage.OpenBolt(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// newProviderRegistry loads the provider file in the background once the app
// starts. Searches wait for it with a bounded timeout.
func newProviderRegistry(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *provider.Registry {
	registry := provider.NewRegistry(cfg.ProvidersFile, logger.Named("providers"))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			registry.Start(context.Background())
			return nil
		},
	})
	return registry
}

func newSessionStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *session.MemoryStore {
	logger = logger.Named("session")

	var opts []session.Option
	if cfg.Session.IdleTTL > 0 {
		opts = append(opts, session.WithEvictionPolicy(session.IdleTimeout(cfg.Session.IdleTTL)))
	}
	store := session.NewMemoryStore(logger, opts...)

	if cfg.Session.IdleTTL > 0 && cfg.Session.JanitorInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go store.RunJanitor(ctx, cfg.Session.JanitorInterval)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}
	return store
}

func newCrawlerConfig(cfg *config.Config) *crawler.CrawlerConfig {
	c := crawler.DefaultConfig()
	c.ProxyURL = cfg.ProxyURL
	c.UserAgent = cfg.Scraper.UserAgent
	c.RequestTimeout = cfg.Scraper.RequestTimeout
	c.Headless = cfg.Scraper.Headless
	c.ExecPath = cfg.Scraper.ExecPath
	return c
}

func newHTTPClient(c *crawler.CrawlerConfig) (*http.Client, error) {
	client, err := crawler.NewHTTPClient(c.ProxyURL, c.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("init http client: %w", err)
	}
	return client, nil
}

func newExecutor(c *crawler.CrawlerConfig, client *http.Client, logger *zap.Logger) crawler.Executor {
	logger = logger.Named("crawler")
	return crawler.NewDispatcher(
		crawler.NewAPIExecutor(client, logger),
		crawler.NewScraperExecutor(
			crawler.NewBrowserRenderer(logger, c),
			crawler.NewStaticRenderer(client, c, logger),
			c.RequestTimeout,
			logger,
		),
	)
}

// LogEgressIP reports the public address provider traffic leaves from when a
// proxy is configured.
func LogEgressIP(lc fx.Lifecycle, c *crawler.CrawlerConfig, client *http.Client, logger *zap.Logger) {
	if c.ProxyURL == "" {
		return
	}
	logger = logger.Named("proxy")
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				checkCtx, done := context.WithTimeout(ctx, 15*time.Second)
				defer done()
				crawler.PublicIP(checkCtx, client, crawler.DefaultIPCheckServices, logger)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// newInsightAdapter returns a nil adapter when no AI key is configured, which
// disables refinement and AI ranking for every caller.
func newInsightAdapter(cfg *config.Config, logger *zap.Logger) (insight.Adapter, error) {
	model, err := insight.NewModel(context.Background(), insight.Config{
		Provider:    cfg.AI.Provider,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if model == nil {
		logger.Warn("no AI key configured, AI insight disabled")
		return nil, nil
	}
	return insight.NewLLMAdapter(model, cfg.AI.Temperature, logger.Named("insight")), nil
}

func newAggregator(
	cfg *config.Config,
	registry *provider.Registry,
	executor crawler.Executor,
	sessions *session.MemoryStore,
	adapter insight.Adapter,
	metrics *telemetry.SearchMetrics,
	logger *zap.Logger,
) search.Searcher {
	return search.NewAggregator(registry, executor, sessions, adapter, metrics, logger.Named("search"), search.Options{
		ReadyTimeout:      cfg.Search.ReadyTimeout,
		DefaultCountry:    cfg.Search.DefaultCountry,
		DefaultMaxResults: cfg.Search.DefaultMaxResults,
		MaxResultsLimit:   cfg.Search.MaxResultsLimit,
	})
}

func newSuggestions(store *storage.BoltStore, logger *zap.Logger) *suggestion.Service {
	return suggestion.NewService(store, logger.Named("suggestion"))
}

func newFavorites(store *storage.BoltStore, logger *zap.Logger) *favorites.Service {
	return favorites.NewService(store, logger.Named("favorites"))
}

func newHandlers(
	cfg *config.Config,
	searcher search.Searcher,
	registry *provider.Registry,
	suggestions *suggestion.Service,
	favs *favorites.Service,
	logger *zap.Logger,
) *api.Handlers {
	return api.NewHandlers(searcher, registry, suggestions, favs, cfg.Search.ReadyTimeout, logger.Named("api"))
}

func newServer(cfg *config.Config, h *api.Handlers, logger *zap.Logger) *api.Server {
	return api.NewServer(cfg.Server.Addr(), h, logger.Named("http"))
}
