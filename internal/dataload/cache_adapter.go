// SPDX-License-Identifier: MIT

package dataload

import (
	"context"
	"crypto/sha1" //nolint:gosec // cache key derivation only
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/data"
	"github.com/ManuGH/recipefeed/internal/download"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/worker"
)

// CacheAdapter stores downloaded envelopes keyed by recipe and parameters.
// Its LoadData reports a miss as a successful load of nil data.
type CacheAdapter struct {
	cache  cache.Cache
	ttl    time.Duration
	pool   *worker.Pool
	logger zerolog.Logger
}

var _ download.Downloader = (*CacheAdapter)(nil)

// NewCacheAdapter wraps c. Entries expire after ttl; ttl <= 0 keeps them
// until cleared. pool runs StoreDataAsync and may be nil.
func NewCacheAdapter(c cache.Cache, ttl time.Duration, pool *worker.Pool) *CacheAdapter {
	return &CacheAdapter{
		cache:  c,
		ttl:    ttl,
		pool:   pool,
		logger: xlog.WithComponent("dataload.cache"),
	}
}

// Key derives the cache key: the base64 SHA-1 of the canonical recipe
// followed by the base64 SHA-1 of each parameter.
func Key(r *recipe.Recipe, params []string) (string, error) {
	canon, err := r.Canonical()
	if err != nil {
		return "", fmt.Errorf("canonicalize recipe %s: %w", r.Name(), err)
	}
	var b strings.Builder
	b.WriteString(sha1Base64(canon))
	for _, p := range params {
		b.WriteString(sha1Base64([]byte(p)))
	}
	return b.String(), nil
}

func sha1Base64(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Name implements download.Downloader.
func (a *CacheAdapter) Name() string { return "CacheAdapter" }

// LoadData looks up the envelope for r and params. A miss calls
// h.OnSuccess with nil data.
func (a *CacheAdapter) LoadData(_ context.Context, r *recipe.Recipe, params []string, h download.Handler) bool {
	key, err := Key(r, params)
	if err != nil {
		metrics.RecordCacheLookup("error")
		h.OnFailure(r, params, err)
		return false
	}
	d, ok := a.cache.Get(key)
	if ok {
		metrics.RecordCacheLookup("hit")
	} else {
		metrics.RecordCacheLookup("miss")
		d = nil
	}
	a.logger.Debug().
		Str(xlog.FieldRecipe, r.Name()).
		Str(xlog.FieldCacheKey, key).
		Bool("hit", ok).
		Msg("cache lookup")
	h.OnSuccess(r, params, d)
	return true
}

// StoreData writes d under the key for r and params.
func (a *CacheAdapter) StoreData(r *recipe.Recipe, params []string, d *data.Data) error {
	if d == nil {
		return fmt.Errorf("store %s: nil data", r.Name())
	}
	key, err := Key(r, params)
	if err != nil {
		return err
	}
	a.cache.Set(key, d, a.ttl)
	return nil
}

// StoreDataAsync stores d on the worker pool. Failures are logged.
func (a *CacheAdapter) StoreDataAsync(ctx context.Context, r *recipe.Recipe, params []string, d *data.Data) {
	store := func(context.Context) {
		if err := a.StoreData(r, params, d); err != nil {
			a.logger.Warn().Err(err).Str(xlog.FieldRecipe, r.Name()).Msg("failed to put data in cache")
		}
	}
	if a.pool == nil {
		go store(ctx)
		return
	}
	if err := a.pool.Submit(ctx, store); err != nil {
		a.logger.Warn().Err(err).Str(xlog.FieldRecipe, r.Name()).Msg("failed to schedule cache store")
	}
}

// Clear drops every entry.
func (a *CacheAdapter) Clear() {
	a.cache.Clear()
}

// Len returns the number of entries currently held.
func (a *CacheAdapter) Len() int {
	return a.cache.Stats().CurrentSize
}
