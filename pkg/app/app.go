// Package app assembles a dashboard Service and its collaborators from a
// config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/components/dashboard/sqlstore"
	"github.com/girlsclub/modular-dashboard/components/dashboard/supabase"
	"github.com/girlsclub/modular-dashboard/pkg/activity"
	"github.com/girlsclub/modular-dashboard/pkg/activity/usersink"
	"github.com/girlsclub/modular-dashboard/pkg/broker"
	"github.com/girlsclub/modular-dashboard/pkg/commerce"
	"github.com/girlsclub/modular-dashboard/pkg/community"
	"github.com/girlsclub/modular-dashboard/pkg/config"
	"github.com/girlsclub/modular-dashboard/pkg/observability"
	"github.com/girlsclub/modular-dashboard/pkg/postgrest"
	"go.uber.org/zap"
)

// Repository is the combined persistence contract every driver satisfies.
type Repository interface {
	dashboard.LayoutRepository
	dashboard.FeatureRepository
}

// App holds the assembled components.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Service   *dashboard.Service
	Store     *dashboard.LayoutStore
	Features  dashboard.FeatureManager
	Catalog   *dashboard.Catalog
	Broadcast *dashboard.BroadcastHook
	Broker    *broker.Redis
	Metrics   *observability.PrometheusTelemetry
	Telemetry dashboard.Telemetry

	closers []func() error
}

// Build wires the application. Callers must Close the result.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Broadcast: dashboard.NewBroadcastHook()}

	sinks := dashboard.MultiTelemetry{observability.NewZapTelemetry(logger)}
	if cfg.Metrics.Enabled {
		a.Metrics = observability.NewPrometheusTelemetry("dashboard")
		sinks = append(sinks, a.Metrics)
	}
	a.Telemetry = sinks

	catalog := dashboard.DefaultCatalog()
	if path := strings.TrimSpace(cfg.Catalog.ManifestPath); path != "" {
		loaded, err := catalog.LoadManifestFile(path)
		if err != nil {
			return nil, fmt.Errorf("app: catalog manifest: %w", err)
		}
		catalog = loaded
	}
	a.Catalog = catalog

	var rest *postgrest.Client
	if cfg.Supabase.URL != "" {
		client, err := postgrest.New(postgrest.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.Key})
		if err != nil {
			return nil, fmt.Errorf("app: supabase: %w", err)
		}
		rest = client
	}

	repo, err := a.openRepository(ctx, rest)
	if err != nil {
		return nil, err
	}

	emitter := activity.NewEmitter(
		activity.Hooks{usersink.Hook{Sink: usersink.LogSink{Logger: logger}}},
		activity.Config{Enabled: true},
	)
	hooks := dashboard.ChangeHooks{a.Broadcast, activity.NewLayoutHook(emitter)}
	if cfg.Redis.Addr != "" {
		b, err := broker.Dial(ctx, broker.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Logger:   logger,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Broker = b
		a.closers = append(a.closers, b.Close)
		hooks = append(hooks, b.Hook())
	}

	a.Store = dashboard.NewLayoutStore(dashboard.StoreOptions{
		Repository: repo,
		Logger:     logger,
		Telemetry:  a.Telemetry,
		Hook:       hooks,
	})
	flags := dashboard.NewFeatureFlags(dashboard.FeatureOptions{
		Repository: repo,
		Logger:     logger,
		Telemetry:  a.Telemetry,
		Hook:       hooks,
	})
	a.Features = flags
	if cfg.Store.FeatureCacheTTL > 0 {
		a.Features = dashboard.NewCachedFeatureGate(flags, cfg.Store.FeatureCacheTTL)
	}

	sources := dashboard.Sources{}
	if rest != nil {
		src := community.New(rest)
		sources.Events = src
		sources.Posts = src
		sources.Challenges = src
		sources.Points = src
		sources.Commerce = commerce.NewSource(commerce.SourceOptions{
			Configs:   commerce.NewConfigRepository(rest),
			Checkouts: commerce.NewMemoryCheckouts(),
		})
	}
	renderer := dashboard.NewWidgetRenderer(dashboard.RendererOptions{
		Catalog:   catalog,
		Features:  a.Features,
		Providers: dashboard.NewProviders(sources),
		Logger:    logger,
		Telemetry: a.Telemetry,
	})
	a.Service = dashboard.NewService(dashboard.Options{
		Store:     a.Store,
		Features:  a.Features,
		Catalog:   catalog,
		Renderer:  renderer,
		Logger:    logger,
		Telemetry: a.Telemetry,
	})
	return a, nil
}

func (a *App) openRepository(ctx context.Context, rest *postgrest.Client) (Repository, error) {
	switch driver := strings.ToLower(a.Config.Store.Driver); driver {
	case "", config.DriverMemory:
		return dashboard.NewMemoryRepository(), nil
	case config.DriverPostgres, config.DriverSQLite:
		repo, err := sqlstore.Open(ctx, driver, a.Config.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("app: open %s: %w", driver, err)
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("app: migrate: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	case config.DriverSupabase:
		if rest == nil {
			return nil, fmt.Errorf("app: supabase driver requires supabase.url")
		}
		return supabase.New(rest), nil
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", driver)
	}
}

// StartForwarder relays events published by other instances into the local
// broadcast hook. It is a no-op without Redis.
func (a *App) StartForwarder(ctx context.Context) error {
	if a.Broker == nil {
		return nil
	}
	return a.Broker.StartForwarder(ctx, a.Broadcast)
}

// MetricsHandler serves Prometheus metrics, or nil when disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics.Handler()
}

// Close releases connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
