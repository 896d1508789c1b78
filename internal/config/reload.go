// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/recipefeed/internal/log"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file or manual trigger.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xlog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration and swaps it in. If loading or validation
// fails, the old configuration is kept and an error is returned.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xlog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xlog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xlog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher starts watching the config file for changes until ctx ends.
// If the loader has no file, this is a no-op (config comes from ENV only).
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xlog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = watcher
	h.done = make(chan struct{})

	h.logger.Info().
		Str(xlog.FieldEvent, "config.watcher_started").
		Str(xlog.FieldPath, path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, path string) {
	defer close(h.done)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = h.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xlog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xlog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(xlog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xlog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Wait blocks until a started watcher has stopped.
func (h *Holder) Wait() {
	if h.done != nil {
		<-h.done
	}
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload succeeds.
// The caller is responsible for closing the channel.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all registered listeners (non-blocking).
func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xlog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the settings that can take effect without a restart.
func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: LogLevel")
	}
	if old.HTTP.RateLimit != newCfg.HTTP.RateLimit {
		h.logger.Info().
			Float64("old", old.HTTP.RateLimit).
			Float64("new", newCfg.HTTP.RateLimit).
			Msg("config changed: HTTP.RateLimit")
	}
	if old.Server.RateLimit != newCfg.Server.RateLimit {
		h.logger.Info().
			Int("old", old.Server.RateLimit).
			Int("new", newCfg.Server.RateLimit).
			Msg("config changed: Server.RateLimit")
	}
	if old.Cache.RedisPassword != newCfg.Cache.RedisPassword {
		h.logger.Info().Msg("config changed: Cache.RedisPassword")
	}
}
