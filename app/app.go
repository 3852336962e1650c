package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dealhunter/api"
	"dealhunter/config"
)

// New builds the application graph. The returned app is started by the caller.
func New() (*fx.App, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return fx.New(Module(conf)), nil
}

// Module is the full dependency graph for conf.
func Module(conf *config.Config) fx.Option {
	return fx.Options(
		fx.StopTimeout(conf.Server.ShutdownTimeout),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf),
		fx.Provide(
			newLogger,
			newTelemetry,
			newSearchMetrics,
			newStorage,
			newProviderRegistry,
			newSessionStore,
			newCrawlerConfig,
			newHTTPClient,
			newExecutor,
			newInsightAdapter,
			newAggregator,
			newSuggestions,
			newFavorites,
			newHandlers,
			newServer,
		),
		fx.Invoke(LogEgressIP),
		fx.Invoke(StartServer),
	)
}

// StartServer runs the HTTP server for the life of the app and stops the app
// if the listener fails.
func StartServer(lc fx.Lifecycle, sd fx.Shutdowner, srv *api.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server stopped", zap.Error(err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
