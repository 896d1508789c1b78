// SPDX-License-Identifier: MIT

package dataload

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
)

// UpdateListener is told when cached data has been invalidated and should
// be reloaded. Listeners are compared by identity, so register pointers.
type UpdateListener interface {
	OnUpdate(d *data.Data)
}

// updater periodically clears the cache and notifies listeners.
type updater struct {
	period time.Duration
	clear  func()
	logger zerolog.Logger

	mu        sync.Mutex
	listeners []UpdateListener

	busy atomic.Bool
}

func newUpdater(period time.Duration, clear func()) *updater {
	return &updater{
		period: period,
		clear:  clear,
		logger: xlog.WithComponent("dataload.updater"),
	}
}

func (u *updater) register(l UpdateListener) {
	if l == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = append(u.listeners, l)
}

func (u *updater) deregister(l UpdateListener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if i := slices.Index(u.listeners, l); i >= 0 {
		u.listeners = slices.Delete(u.listeners, i, i+1)
	}
}

func (u *updater) registered(l UpdateListener) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Contains(u.listeners, l)
}

// run blocks until ctx is done, firing once per period. The first tick
// comes one full period after start.
func (u *updater) run(ctx context.Context) {
	if u.period <= 0 {
		u.logger.Debug().Msg("data updater not configured")
		return
	}
	ticker := time.NewTicker(u.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.tick()
		}
	}
}

func (u *updater) tick() {
	if !u.busy.CompareAndSwap(false, true) {
		return
	}
	defer u.busy.Store(false)

	u.clear()
	metrics.IncCacheInvalidation()

	u.mu.Lock()
	snapshot := slices.Clone(u.listeners)
	u.mu.Unlock()

	u.logger.Debug().Int("listeners", len(snapshot)).Str(xlog.FieldEvent, "cache.invalidated").Msg("cache cleared")
	for _, l := range snapshot {
		l.OnUpdate(data.ForPayload(""))
	}
}
