// SPDX-License-Identifier: MIT

package config

import "time"

// Default values applied before the file and environment stages.
const (
	DefaultAssetsDir        = "assets"
	DefaultDataLoaderConfig = "configurations/data_load_manager_config.json"
	DefaultNavigator        = "navigator.json"
	DefaultRecipesDir       = "recipes"
	DefaultListenAddr       = ":8080"
)

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:         "info",
		LogService:       "recipefeed",
		AssetsDir:        DefaultAssetsDir,
		DataLoaderConfig: DefaultDataLoaderConfig,
		Navigator:        DefaultNavigator,
		RecipesDir:       DefaultRecipesDir,
		Cache: CacheConfig{
			Backend:         "memory",
			MaxEntries:      100,
			CleanupInterval: time.Minute,
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "recipefeed:",
		},
		HTTP: HTTPConfig{
			Timeout:          30 * time.Second,
			RateLimit:        10,
			Burst:            20,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			MaxBodyBytes:     32 << 20,
		},
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			RateLimit:       600,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
