// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/recipefeed/internal/config"
	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// Starter is a background component that runs until its context ends.
type Starter interface {
	Start(ctx context.Context)
}

// Watcher watches a resource and reacts to changes until its context ends.
type Watcher interface {
	Watch(ctx context.Context) error
}

// AppOptions lists the collaborators App drives besides the Manager. All
// fields are optional.
type AppOptions struct {
	ConfigHolder *config.Holder
	// Background components are started before the server.
	Background []Starter
	// Watchers are best-effort; a watcher that fails to start is logged.
	Watchers []Watcher
	// Preload runs once after the server starts. Its error is logged.
	Preload func(ctx context.Context) error
	// OnConfig is called with every successfully reloaded configuration.
	OnConfig func(cfg config.AppConfig)
}

// App owns the long-lived runtime lifecycle (watchers, reload wiring,
// background work) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	opts         AppOptions
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, opts AppOptions) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		opts:         opts,
		reloadSignal: syscall.SIGHUP,
	}
}

// DisablePreload skips the initial feed load.
func (a *App) DisablePreload() { a.opts.Preload = nil }

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)
	holder := a.opts.ConfigHolder

	if holder != nil {
		if err := holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xlog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer holder.Wait()

		if a.opts.OnConfig != nil {
			applyCh := make(chan config.AppConfig, 1)
			holder.RegisterListener(applyCh)
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case cfg := <-applyCh:
						a.opts.OnConfig(cfg)
					}
				}
			})
		}

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hup:
						a.logger.Info().
							Str(xlog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := holder.Reload(ctx); err != nil {
							a.logger.Warn().Err(err).Str(xlog.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	for _, s := range a.opts.Background {
		s.Start(ctx)
	}
	for _, w := range a.opts.Watchers {
		if err := w.Watch(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xlog.FieldEvent, "daemon.watcher_start_failed").Msg("failed to start watcher")
		}
	}

	if a.opts.Preload != nil {
		g.Go(func() error {
			if err := a.opts.Preload(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn().Err(err).Str(xlog.FieldEvent, "feed.preload_failed").Msg("initial feed load failed")
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
