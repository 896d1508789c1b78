// SPDX-License-Identifier: MIT

package config

import "time"

// AppConfig is the effective runtime configuration after defaults, file
// and environment have been merged.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	// AssetsDir is the root for recipes, downloader configurations, URL
	// files and local payloads. The paths below are relative to it.
	AssetsDir        string
	DataLoaderConfig string
	Navigator        string
	// RecipesDir is watched for recipe changes; empty disables watching.
	RecipesDir string

	Cache     CacheConfig
	HTTP      HTTPConfig
	Server    ServerConfig
	Telemetry TelemetryConfig
}

// CacheConfig selects and tunes the cache backend used by the data load
// manager when its recipe enables caching.
type CacheConfig struct {
	Backend         string
	MaxEntries      int
	CleanupInterval time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	BadgerDir       string
}

// HTTPConfig tunes outbound fetches.
type HTTPConfig struct {
	Timeout          time.Duration
	RateLimit        float64 // requests per second, 0 disables
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
	MaxBodyBytes     int64
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr      string
	RateLimit       int // requests per minute per client IP, 0 disables
	ShutdownTimeout time.Duration
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// FileConfig is the YAML file schema. Durations are Go duration strings and
// pointers distinguish unset from zero.
type FileConfig struct {
	LogLevel   string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty" json:"logService,omitempty"`

	AssetsDir        string `yaml:"assetsDir,omitempty" json:"assetsDir,omitempty"`
	DataLoaderConfig string `yaml:"dataLoaderConfig,omitempty" json:"dataLoaderConfig,omitempty"`
	Navigator        string `yaml:"navigator,omitempty" json:"navigator,omitempty"`
	RecipesDir       string `yaml:"recipesDir,omitempty" json:"recipesDir,omitempty"`

	Cache     CacheFileConfig     `yaml:"cache,omitempty" json:"cache,omitempty"`
	HTTP      HTTPFileConfig      `yaml:"http,omitempty" json:"http,omitempty"`
	Server    ServerFileConfig    `yaml:"server,omitempty" json:"server,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}

// CacheFileConfig is the YAML form of CacheConfig.
type CacheFileConfig struct {
	Backend         string `yaml:"backend,omitempty" json:"backend,omitempty"`
	MaxEntries      *int   `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`
	CleanupInterval string `yaml:"cleanupInterval,omitempty" json:"cleanupInterval,omitempty"`
	RedisAddr       string `yaml:"redisAddr,omitempty" json:"redisAddr,omitempty"`
	RedisPassword   string `yaml:"redisPassword,omitempty" json:"redisPassword,omitempty"`
	RedisDB         *int   `yaml:"redisDB,omitempty" json:"redisDB,omitempty"`
	RedisPrefix     string `yaml:"redisPrefix,omitempty" json:"redisPrefix,omitempty"`
	BadgerDir       string `yaml:"badgerDir,omitempty" json:"badgerDir,omitempty"`
}

// HTTPFileConfig is the YAML form of HTTPConfig.
type HTTPFileConfig struct {
	Timeout          string   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RateLimit        *float64 `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	Burst            *int     `yaml:"burst,omitempty" json:"burst,omitempty"`
	BreakerThreshold *int     `yaml:"breakerThreshold,omitempty" json:"breakerThreshold,omitempty"`
	BreakerReset     string   `yaml:"breakerReset,omitempty" json:"breakerReset,omitempty"`
	MaxBodyBytes     *int64   `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty"`
}

// ServerFileConfig is the YAML form of ServerConfig.
type ServerFileConfig struct {
	ListenAddr      string `yaml:"listenAddr,omitempty" json:"listenAddr,omitempty"`
	RateLimit       *int   `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// TelemetryFileConfig is the YAML form of TelemetryConfig.
type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty" json:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty" json:"environment,omitempty"`
}
