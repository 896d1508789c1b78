// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stdout)
	Service string    // optional service name attached to every log entry
	Version string    // optional build version attached to every log entry
}

var (
	mu         sync.RWMutex
	configured bool
	base       zerolog.Logger
)

// Configure (re)initialises the global zerolog logger. The first call wins
// unless a later call carries an explicit level or output.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if configured && cfg.Level == "" && cfg.Output == nil {
		return
	}

	zerolog.SetGlobalLevel(resolveLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}
	service := firstNonEmpty(cfg.Service, os.Getenv("LOG_SERVICE"), "recipefeed")
	version := firstNonEmpty(cfg.Version, os.Getenv("VERSION"))

	base = zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
	configured = true
}

func logger() zerolog.Logger {
	mu.RLock()
	if configured {
		l := base
		mu.RUnlock()
		return l
	}
	mu.RUnlock()
	Configure(Config{})
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}

// resolveLevel prefers an explicit level, then LOG_LEVEL, then info.
// Unparseable values fall through to the next source.
func resolveLevel(explicit string) zerolog.Level {
	for _, s := range []string{explicit, os.Getenv("LOG_LEVEL")} {
		if s == "" {
			continue
		}
		if lvl, err := zerolog.ParseLevel(s); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
