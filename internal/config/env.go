// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/log"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "RECIPEFEED_"

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	switch {
	case value == "":
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	case isSensitive(key):
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	default:
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password")
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi, "integer")
}

// ParseInt64 reads a 64-bit integer from environment variable or returns
// default value.
func ParseInt64(key string, defaultValue int64) int64 {
	return parseEnv(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}, "integer")
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, "float")
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration, "duration")
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, parseBool, "boolean")
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error), kind string) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok {
		logger.Debug().
			Str("key", key).
			Interface("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	if v == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", defaultValue).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}
