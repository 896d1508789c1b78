// SPDX-License-Identifier: MIT

package recipe

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// Catalog holds the recipes found in a directory, keyed by file name
// without extension, and optionally reloads them when files change.
type Catalog struct {
	dir    string
	fsys   fs.FS
	logger zerolog.Logger

	mu      sync.RWMutex
	recipes map[string]*Recipe
	hooks   []func()

	watcher *fsnotify.Watcher
}

// NewCatalog loads every .json, .yaml and .yml document directly under dir.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{
		dir:    dir,
		fsys:   os.DirFS(dir),
		logger: xlog.WithComponent("recipe.catalog"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the recipe registered under name.
func (c *Catalog) Get(name string) (*Recipe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.recipes[strings.TrimSuffix(name, path.Ext(name))]
	return r, ok
}

// Names returns the sorted recipe names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.recipes))
	for n := range c.recipes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OnReload registers fn to run after every successful reload.
func (c *Catalog) OnReload(fn func()) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Reload rereads the directory. On error the previous recipes are kept.
func (c *Catalog) Reload() error {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return fmt.Errorf("read recipe dir %s: %w", c.dir, err)
	}
	next := make(map[string]*Recipe, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isRecipeFile(e.Name()) {
			continue
		}
		r, err := Load(c.fsys, e.Name())
		if err != nil {
			return err
		}
		next[r.Name()] = r
	}
	c.mu.Lock()
	c.recipes = next
	hooks := slices.Clone(c.hooks)
	c.mu.Unlock()
	c.logger.Info().
		Str(xlog.FieldEvent, "recipe.catalog_loaded").
		Str(xlog.FieldPath, c.dir).
		Int("count", len(next)).
		Msg("recipe catalog loaded")
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Watch reloads the catalog whenever a recipe file is written, created or
// removed, until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch recipe dir: %w", err)
	}
	c.watcher = watcher
	go c.watchLoop(ctx)
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = c.watcher.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !isRecipeFile(filepath.Base(ev.Name)) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				if err := c.Reload(); err != nil {
					c.logger.Error().Err(err).
						Str(xlog.FieldEvent, "recipe.catalog_reload_failed").
						Msg("recipe catalog reload failed")
				}
			})
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Str(xlog.FieldEvent, "recipe.catalog_watch_error").Msg("recipe watcher error")
		}
	}
}

func isRecipeFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
