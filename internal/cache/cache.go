// SPDX-License-Identifier: MIT

// Package cache stores downloaded payload envelopes with TTL support.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ManuGH/recipefeed/internal/data"
)

// Cache provides thread-safe caching of payload envelopes with expiration.
// Backend failures are logged by the implementation and reported as misses.
type Cache interface {
	// Get retrieves a value from the cache. Returns false if not found or expired.
	Get(key string) (*data.Data, bool)
	// Set stores a value with the given TTL; a non-positive TTL never expires.
	Set(key string, value *data.Data, ttl time.Duration)
	// Delete removes a value from the cache.
	Delete(key string)
	// Clear removes all values from the cache.
	Clear()
	// Stats returns cache statistics.
	Stats() CacheStats
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Hits        int64 // Number of successful Get operations
	Misses      int64 // Number of failed Get operations (not found or expired)
	Sets        int64 // Number of Set operations
	Evictions   int64 // Number of expired or displaced entries removed
	CurrentSize int   // Current number of cached entries
}

// entry represents a cached value with expiration time.
type entry struct {
	key        string
	value      *data.Data
	expiration time.Time // zero means no expiry
}

func (e *entry) isExpired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// MemoryCache is an in-memory implementation of Cache with optional LRU
// bounding.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	maxEntries int
	stats      CacheStats
	janitor    *janitor
	now        func() time.Time
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a janitor purging expired entries; a positive maxEntries evicts the
// least recently used entry once the bound is reached.
func NewMemoryCache(cleanupInterval time.Duration, maxEntries int) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	if cleanupInterval > 0 {
		c.janitor = &janitor{interval: cleanupInterval, stop: make(chan struct{}), done: make(chan struct{})}
		go c.janitor.run(c)
	}
	return c
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (*data.Data, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.entries[key]
	if !found {
		c.stats.Misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if e.isExpired(c.now()) {
		c.removeElement(el)
		c.stats.Evictions++
		c.stats.Misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value *data.Data, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.stats.Sets++
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expiration = value, exp
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, value: value, expiration: exp})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
		c.stats.Evictions++
	}
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

// deleteExpired removes all expired entries and returns how many it removed.
func (c *MemoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for _, el := range c.entries {
		if el.Value.(*entry).isExpired(now) {
			c.removeElement(el)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop stops the background cleanup goroutine. It is safe to call twice.
func (c *MemoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.once.Do(func() { close(c.janitor.stop) })
		<-c.janitor.done
	}
}

// janitor performs periodic cleanup of expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (j *janitor) run(c *MemoryCache) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

// noOpCache is a cache that does nothing, used when caching is disabled.
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache anything.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(string) (*data.Data, bool)         { return nil, false }
func (noOpCache) Set(string, *data.Data, time.Duration) {}
func (noOpCache) Delete(string)                         {}
func (noOpCache) Clear()                                {}
func (noOpCache) Stats() CacheStats                     { return CacheStats{} }
