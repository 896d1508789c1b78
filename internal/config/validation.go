// SPDX-License-Identifier: MIT

package config

import (
	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/telemetry"
	"github.com/ManuGH/recipefeed/internal/validate"
)

// Validate checks a merged configuration. All failures are reported
// together as a validate.ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", cfg.LogLevel, validate.LogLevels)
	v.Directory("AssetsDir", cfg.AssetsDir)
	v.LocalPath("DataLoaderConfig", cfg.DataLoaderConfig)
	v.LocalPath("Navigator", cfg.Navigator)
	if cfg.RecipesDir != "" {
		v.LocalPath("RecipesDir", cfg.RecipesDir)
	}

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{
		cache.BackendMemory, cache.BackendRedis, cache.BackendBadger, cache.BackendNone,
	})
	v.Positive("Cache.MaxEntries", cfg.Cache.MaxEntries)
	v.PositiveDuration("Cache.CleanupInterval", cfg.Cache.CleanupInterval)
	if cfg.Cache.Backend == cache.BackendRedis {
		v.HostPort("Cache.RedisAddr", cfg.Cache.RedisAddr)
		v.Range("Cache.RedisDB", cfg.Cache.RedisDB, 0, 15)
	}

	v.PositiveDuration("HTTP.Timeout", cfg.HTTP.Timeout)
	if cfg.HTTP.RateLimit < 0 {
		v.AddError("HTTP.RateLimit", "value cannot be negative", cfg.HTTP.RateLimit)
	}
	v.NonNegative("HTTP.Burst", cfg.HTTP.Burst)
	v.Positive("HTTP.BreakerThreshold", cfg.HTTP.BreakerThreshold)
	v.PositiveDuration("HTTP.BreakerReset", cfg.HTTP.BreakerReset)
	if cfg.HTTP.MaxBodyBytes <= 0 {
		v.AddError("HTTP.MaxBodyBytes", "value must be positive", cfg.HTTP.MaxBodyBytes)
	}

	v.HostPort("Server.ListenAddr", cfg.Server.ListenAddr)
	v.NonNegative("Server.RateLimit", cfg.Server.RateLimit)
	v.PositiveDuration("Server.ShutdownTimeout", cfg.Server.ShutdownTimeout)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{telemetry.ExporterGRPC, telemetry.ExporterHTTP})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
