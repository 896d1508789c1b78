// SPDX-License-Identifier: MIT

// Package bootstrap builds the production dependency graph from an
// effective configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/api"
	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/config"
	"github.com/ManuGH/recipefeed/internal/daemon"
	"github.com/ManuGH/recipefeed/internal/dataload"
	"github.com/ManuGH/recipefeed/internal/download"
	"github.com/ManuGH/recipefeed/internal/dynparser"
	"github.com/ManuGH/recipefeed/internal/feed"
	"github.com/ManuGH/recipefeed/internal/health"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/telemetry"
	"github.com/ManuGH/recipefeed/internal/worker"
)

// feedMaxAge is how old the last successful feed load may get before
// readiness reports the service degraded.
const feedMaxAge = 24 * time.Hour

// Container is the composition root output.
type Container struct {
	Config       config.AppConfig
	ConfigHolder *config.Holder
	Logger       zerolog.Logger

	Assets     fs.FS
	Cache      cache.Cache
	DataLoader *dataload.Manager
	Parser     *dynparser.Engine
	Feeds      *feed.Loader
	Catalog    *recipe.Catalog
	Health     *health.Manager
	Server     *api.Server

	telemetry *telemetry.Provider
	closers   []namedCloser
	closeOnce sync.Once
	closeErr  error
}

type namedCloser struct {
	name string
	fn   func(ctx context.Context) error
}

// WireServices builds the feed pipeline and the API server for cfg. A
// non-nil loader enables config hot reload. On error everything built so
// far is released.
func WireServices(ctx context.Context, cfg config.AppConfig, loader *config.Loader) (c *Container, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}
	c = &Container{
		Config: cfg,
		Logger: xlog.WithComponent("bootstrap"),
		Assets: os.DirFS(cfg.AssetsDir),
	}
	defer func() {
		if err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
			c = nil
		}
	}()

	c.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return c, fmt.Errorf("initialize telemetry: %w", err)
	}
	c.addCloser("telemetry", c.telemetry.Shutdown)

	dlConfig, err := recipe.Load(c.Assets, cfg.DataLoaderConfig)
	if err != nil {
		return c, fmt.Errorf("load data loader config: %w", err)
	}
	backend, closer, err := cache.New(cacheOptions(cfg.Cache, dlConfig), xlog.WithComponent("cache"))
	if err != nil {
		return c, fmt.Errorf("initialize %s cache: %w", cfg.Cache.Backend, err)
	}
	c.Cache = backend
	c.addCloser("cache", func(context.Context) error { return closer.Close() })

	pool := worker.NewPool(0)
	c.addCloser("worker_pool", func(context.Context) error { pool.Close(); return nil })

	fetcher := download.NewHTTPFetcher(download.FetcherOptions{
		Timeout:          cfg.HTTP.Timeout,
		RateLimit:        cfg.HTTP.RateLimit,
		Burst:            cfg.HTTP.Burst,
		BreakerThreshold: cfg.HTTP.BreakerThreshold,
		BreakerReset:     cfg.HTTP.BreakerReset,
		MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
	})
	c.DataLoader, err = dataload.NewManager(dlConfig, dataload.Deps{
		Registry: download.NewDefaultRegistry(),
		Env:      download.Env{Assets: c.Assets, Fetcher: fetcher},
		Cache:    backend,
		Pool:     pool,
	})
	if err != nil {
		return c, fmt.Errorf("create data load manager: %w", err)
	}
	c.addCloser("data_loader", func(context.Context) error { c.DataLoader.Close(); return nil })

	c.Parser = dynparser.New(dynparser.WithPool(pool))
	c.addCloser("dynamic_parser", func(context.Context) error { c.Parser.Close(); return nil })

	nav, err := feed.LoadNavigator(c.Assets, cfg.Navigator)
	if err != nil {
		return c, fmt.Errorf("load navigator: %w", err)
	}
	c.Feeds = feed.NewLoader(nav, c.DataLoader, c.Parser)
	c.DataLoader.RegisterUpdateListener(c.Feeds)

	if err := c.wireCatalog(); err != nil {
		return c, err
	}

	if loader != nil {
		c.ConfigHolder = config.NewHolder(cfg, loader)
	}

	c.Health = health.NewManager(cfg.Version)
	c.Health.RegisterChecker(health.NewFileChecker("navigator", c.Assets, cfg.Navigator))
	c.Health.RegisterChecker(health.NewLastLoadChecker(c.Feeds.LastLoad, feedMaxAge))
	c.Health.RegisterChecker(health.NewBreakerChecker("http_fetcher", fetcher.BreakerState))
	if rc, ok := backend.(*cache.RedisCache); ok {
		redis := health.NewFuncChecker("redis", rc.HealthCheck)
		redis.FailStatus = health.StatusDegraded
		c.Health.RegisterChecker(redis)
	}
	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = cfg.LogService
	}
	c.Server = api.New(api.Config{
		Version:            cfg.Version,
		RateLimitPerMinute: cfg.Server.RateLimit,
		TracingService:     tracingService,
	}, api.Deps{
		Feeds:  c.Feeds,
		Cache:  c.DataLoader.Cache(),
		Health: c.Health,
	})

	c.Logger.Info().
		Str(xlog.FieldEvent, "bootstrap.wired").
		Str("assets", cfg.AssetsDir).
		Str(xlog.FieldBackend, cfg.Cache.Backend).
		Int("feeds", c.Feeds.FeedCount()).
		Int("recommendation_feeds", c.Feeds.RecommendationFeedCount()).
		Bool("tracing", cfg.Telemetry.Enabled).
		Msg("services wired")
	return c, nil
}

// cacheOptions maps the cache settings onto cache.Options. The data load
// config decides whether a cache exists at all, and its cache_size bounds
// the memory backend when set.
func cacheOptions(cc config.CacheConfig, dlConfig *recipe.Recipe) cache.Options {
	opts := cache.Options{
		Backend:         cc.Backend,
		MaxEntries:      cc.MaxEntries,
		CleanupInterval: cc.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
			Prefix:   cc.RedisPrefix,
		},
		BadgerDir: cc.BadgerDir,
	}
	if !dlConfig.Bool(dataload.KeyCacheEnabled) {
		opts.Backend = cache.BackendNone
		return opts
	}
	if size := dlConfig.Int(dataload.KeyCacheSize); size > 0 && (opts.Backend == "" || opts.Backend == cache.BackendMemory) {
		opts.MaxEntries = size
	}
	return opts
}

// wireCatalog watches the recipes directory, when there is one, and swaps
// in a freshly resolved navigator after every change.
func (c *Container) wireCatalog() error {
	if c.Config.RecipesDir == "" {
		return nil
	}
	dir := filepath.Join(c.Config.AssetsDir, filepath.FromSlash(c.Config.RecipesDir))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		c.Logger.Info().
			Str(xlog.FieldEvent, "recipe.catalog_disabled").
			Str(xlog.FieldPath, dir).
			Msg("recipes directory not found, recipe watching disabled")
		return nil
	}
	catalog, err := recipe.NewCatalog(dir)
	if err != nil {
		return fmt.Errorf("load recipe catalog: %w", err)
	}
	catalog.OnReload(c.ReloadNavigator)
	c.Catalog = catalog
	return nil
}

// ReloadNavigator re-resolves the navigator and its recipes. On failure the
// current navigator stays in place.
func (c *Container) ReloadNavigator() {
	nav, err := feed.LoadNavigator(c.Assets, c.Config.Navigator)
	if err != nil {
		c.Logger.Error().Err(err).
			Str(xlog.FieldEvent, "feed.navigator_reload_failed").
			Msg("navigator reload failed, keeping the current one")
		return
	}
	c.Feeds.SetNavigator(nav)
}

// ApplyConfig applies the settings of a reloaded configuration that can
// change at runtime. Everything else takes effect on restart.
func (c *Container) ApplyConfig(cfg config.AppConfig) {
	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	if cfg.AssetsDir != c.Config.AssetsDir || cfg.Navigator != c.Config.Navigator ||
		cfg.DataLoaderConfig != c.Config.DataLoaderConfig || cfg.Cache != c.Config.Cache {
		c.Logger.Warn().
			Str(xlog.FieldEvent, "config.restart_required").
			Msg("assets, navigator, data loader or cache settings changed; restart to apply")
	}
}

// NewApp wraps the container in a daemon app serving on cfg.Server.
func (c *Container) NewApp() (*daemon.App, error) {
	mgr, err := daemon.NewManager(c.Config.Server, daemon.Deps{
		Logger:     xlog.WithComponent("daemon"),
		APIHandler: c.Server.Handler(),
	})
	if err != nil {
		return nil, fmt.Errorf("create daemon manager: %w", err)
	}
	mgr.RegisterShutdownHook("cancel_data_loads", func(context.Context) error {
		c.DataLoader.CancelAll()
		return nil
	})

	opts := daemon.AppOptions{
		ConfigHolder: c.ConfigHolder,
		Background:   []daemon.Starter{c.DataLoader},
		OnConfig:     c.ApplyConfig,
		Preload: func(ctx context.Context) error {
			_, err := c.Feeds.LoadAll(ctx)
			return err
		},
	}
	if c.Catalog != nil {
		opts.Watchers = append(opts.Watchers, c.Catalog)
	}
	return daemon.NewApp(xlog.WithComponent("daemon"), mgr, opts), nil
}

// Close releases every component in reverse construction order. It is safe
// to call more than once.
func (c *Container) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i].fn(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", c.closers[i].name, err))
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *Container) addCloser(name string, fn func(ctx context.Context) error) {
	c.closers = append(c.closers, namedCloser{name: name, fn: fn})
}
