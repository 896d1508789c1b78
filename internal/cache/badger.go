// SPDX-License-Identifier: MIT

package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// BadgerCache is a disk-backed implementation of Cache. An empty directory
// keeps the store in memory.
type BadgerCache struct {
	db     *badger.DB
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// NewBadgerCache opens (or creates) a badger store in dir.
func NewBadgerCache(dir string, logger zerolog.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	logger.Info().Str(xlog.FieldPath, dir).Bool("in_memory", dir == "").Msg("opened badger cache")
	return &BadgerCache{db: db, logger: logger}, nil
}

// Get retrieves a value from the store.
func (c *BadgerCache) Get(key string) (*data.Data, bool) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.stats.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("badger get failed")
		c.stats.misses.Add(1)
		return nil, false
	}
	d, err := decode(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("msgpack decode failed")
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return d, true
}

// Set stores a value; a non-positive TTL never expires.
func (c *BadgerCache) Set(key string, value *data.Data, ttl time.Duration) {
	b, err := encode(value)
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("msgpack encode failed")
		return
	}
	e := badger.NewEntry([]byte(key), b)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	if err := c.db.Update(func(txn *badger.Txn) error { return txn.SetEntry(e) }); err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("badger set failed")
		return
	}
	c.stats.sets.Add(1)
}

// Delete removes a value.
func (c *BadgerCache) Delete(key string) {
	if err := c.db.Update(func(txn *badger.Txn) error { return txn.Delete([]byte(key)) }); err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("badger delete failed")
	}
}

// Clear drops every entry.
func (c *BadgerCache) Clear() {
	if err := c.db.DropAll(); err != nil {
		c.logger.Warn().Err(err).Msg("badger drop failed")
	}
}

// Stats returns cache statistics.
func (c *BadgerCache) Stats() CacheStats {
	size := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("badger size scan failed")
	}
	return CacheStats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		CurrentSize: size,
	}
}

// Close closes the store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
