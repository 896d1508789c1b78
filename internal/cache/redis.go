// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// DefaultRedisPrefix namespaces every key written by RedisCache.
const DefaultRedisPrefix = "recipefeed:"

// RedisCache is a Redis-backed implementation of Cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // Key namespace (defaults to DefaultRedisPrefix)
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis cache")

	return newRedisCache(client, config.Prefix, logger), nil
}

func newRedisCache(client *redis.Client, prefix string, logger zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(key string) (*data.Data, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("redis get failed")
		c.stats.misses.Add(1)
		return nil, false
	}
	d, err := decode(val)
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("msgpack decode failed")
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return d, true
}

// Set stores a value in Redis with TTL; a non-positive TTL never expires.
func (c *RedisCache) Set(key string, value *data.Data, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b, err := encode(value)
	if err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("msgpack encode failed")
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, b, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str(xlog.FieldCacheKey, key).Msg("redis delete failed")
	}
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys, err := c.keys(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis clear failed")
	}
}

// Stats returns cache statistics.
func (c *RedisCache) Stats() CacheStats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keys, err := c.keys(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
	}
	return CacheStats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		CurrentSize: len(keys),
	}
}

func (c *RedisCache) keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// HealthCheck checks if Redis is available.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
