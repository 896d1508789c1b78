// SPDX-License-Identifier: MIT

package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend         string
	MaxEntries      int
	CleanupInterval time.Duration
	Redis           RedisConfig
	BadgerDir       string
}

// New builds the configured backend. The returned closer releases its
// resources and is never nil.
func New(opts Options, logger zerolog.Logger) (Cache, io.Closer, error) {
	switch opts.Backend {
	case "", BackendMemory:
		c := NewMemoryCache(opts.CleanupInterval, opts.MaxEntries)
		return c, closerFunc(func() error { c.Stop(); return nil }), nil
	case BackendRedis:
		c, err := NewRedisCache(opts.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case BackendBadger:
		c, err := NewBadgerCache(opts.BadgerDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case BackendNone:
		return NewNoOpCache(), closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
