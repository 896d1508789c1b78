// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the loader.
const (
	EnvLogLevel         = EnvPrefix + "LOG_LEVEL"
	EnvLogService       = EnvPrefix + "LOG_SERVICE"
	EnvAssetsDir        = EnvPrefix + "ASSETS_DIR"
	EnvDataLoaderConfig = EnvPrefix + "DATA_LOADER_CONFIG"
	EnvNavigator        = EnvPrefix + "NAVIGATOR"
	EnvRecipesDir       = EnvPrefix + "RECIPES_DIR"

	EnvCacheBackend         = EnvPrefix + "CACHE_BACKEND"
	EnvCacheMaxEntries      = EnvPrefix + "CACHE_MAX_ENTRIES"
	EnvCacheCleanupInterval = EnvPrefix + "CACHE_CLEANUP_INTERVAL"
	EnvRedisAddr            = EnvPrefix + "REDIS_ADDR"
	EnvRedisPassword        = EnvPrefix + "REDIS_PASSWORD"
	EnvRedisDB              = EnvPrefix + "REDIS_DB"
	EnvRedisPrefix          = EnvPrefix + "REDIS_PREFIX"
	EnvBadgerDir            = EnvPrefix + "BADGER_DIR"

	EnvHTTPTimeout          = EnvPrefix + "HTTP_TIMEOUT"
	EnvHTTPRateLimit        = EnvPrefix + "HTTP_RATE_LIMIT"
	EnvHTTPBurst            = EnvPrefix + "HTTP_BURST"
	EnvHTTPBreakerThreshold = EnvPrefix + "HTTP_BREAKER_THRESHOLD"
	EnvHTTPBreakerReset     = EnvPrefix + "HTTP_BREAKER_RESET"
	EnvHTTPMaxBodyBytes     = EnvPrefix + "HTTP_MAX_BODY_BYTES"

	EnvListenAddr      = EnvPrefix + "LISTEN_ADDR"
	EnvServerRateLimit = EnvPrefix + "SERVER_RATE_LIMIT"
	EnvShutdownTimeout = EnvPrefix + "SHUTDOWN_TIMEOUT"

	EnvTelemetryEnabled      = EnvPrefix + "TELEMETRY_ENABLED"
	EnvTelemetryExporter     = EnvPrefix + "TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint     = EnvPrefix + "TELEMETRY_ENDPOINT"
	EnvTelemetrySamplingRate = EnvPrefix + "TELEMETRY_SAMPLING_RATE"
	EnvTelemetryEnvironment  = EnvPrefix + "TELEMETRY_ENVIRONMENT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips
// the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, which may be empty.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.AssetsDir); err == nil {
		cfg.AssetsDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path, "").loadFile(path)
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)
	setString(&cfg.AssetsDir, f.AssetsDir)
	setString(&cfg.DataLoaderConfig, f.DataLoaderConfig)
	setString(&cfg.Navigator, f.Navigator)
	setString(&cfg.RecipesDir, f.RecipesDir)

	setString(&cfg.Cache.Backend, f.Cache.Backend)
	setPtr(&cfg.Cache.MaxEntries, f.Cache.MaxEntries)
	setString(&cfg.Cache.RedisAddr, f.Cache.RedisAddr)
	setString(&cfg.Cache.RedisPassword, f.Cache.RedisPassword)
	setPtr(&cfg.Cache.RedisDB, f.Cache.RedisDB)
	setString(&cfg.Cache.RedisPrefix, f.Cache.RedisPrefix)
	setString(&cfg.Cache.BadgerDir, f.Cache.BadgerDir)

	setPtr(&cfg.HTTP.RateLimit, f.HTTP.RateLimit)
	setPtr(&cfg.HTTP.Burst, f.HTTP.Burst)
	setPtr(&cfg.HTTP.BreakerThreshold, f.HTTP.BreakerThreshold)
	setPtr(&cfg.HTTP.MaxBodyBytes, f.HTTP.MaxBodyBytes)

	setString(&cfg.Server.ListenAddr, f.Server.ListenAddr)
	setPtr(&cfg.Server.RateLimit, f.Server.RateLimit)

	setPtr(&cfg.Telemetry.Enabled, f.Telemetry.Enabled)
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	setPtr(&cfg.Telemetry.SamplingRate, f.Telemetry.SamplingRate)
	setString(&cfg.Telemetry.Environment, f.Telemetry.Environment)

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"cache.cleanupInterval", f.Cache.CleanupInterval, &cfg.Cache.CleanupInterval},
		{"http.timeout", f.HTTP.Timeout, &cfg.HTTP.Timeout},
		{"http.breakerReset", f.HTTP.BreakerReset, &cfg.HTTP.BreakerReset},
		{"server.shutdownTimeout", f.Server.ShutdownTimeout, &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.field, err)
		}
		*d.dst = v
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.AssetsDir = l.envString(EnvAssetsDir, cfg.AssetsDir)
	cfg.DataLoaderConfig = l.envString(EnvDataLoaderConfig, cfg.DataLoaderConfig)
	cfg.Navigator = l.envString(EnvNavigator, cfg.Navigator)
	cfg.RecipesDir = l.envString(EnvRecipesDir, cfg.RecipesDir)

	cfg.Cache.Backend = l.envString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.MaxEntries = l.envInt(EnvCacheMaxEntries, cfg.Cache.MaxEntries)
	cfg.Cache.CleanupInterval = l.envDuration(EnvCacheCleanupInterval, cfg.Cache.CleanupInterval)
	cfg.Cache.RedisAddr = l.envString(EnvRedisAddr, cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = l.envString(EnvRedisPassword, cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = l.envInt(EnvRedisDB, cfg.Cache.RedisDB)
	cfg.Cache.RedisPrefix = l.envString(EnvRedisPrefix, cfg.Cache.RedisPrefix)
	cfg.Cache.BadgerDir = l.envString(EnvBadgerDir, cfg.Cache.BadgerDir)

	cfg.HTTP.Timeout = l.envDuration(EnvHTTPTimeout, cfg.HTTP.Timeout)
	cfg.HTTP.RateLimit = l.envFloat(EnvHTTPRateLimit, cfg.HTTP.RateLimit)
	cfg.HTTP.Burst = l.envInt(EnvHTTPBurst, cfg.HTTP.Burst)
	cfg.HTTP.BreakerThreshold = l.envInt(EnvHTTPBreakerThreshold, cfg.HTTP.BreakerThreshold)
	cfg.HTTP.BreakerReset = l.envDuration(EnvHTTPBreakerReset, cfg.HTTP.BreakerReset)
	cfg.HTTP.MaxBodyBytes = l.envInt64(EnvHTTPMaxBodyBytes, cfg.HTTP.MaxBodyBytes)

	cfg.Server.ListenAddr = l.envString(EnvListenAddr, cfg.Server.ListenAddr)
	cfg.Server.RateLimit = l.envInt(EnvServerRateLimit, cfg.Server.RateLimit)
	cfg.Server.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.Server.ShutdownTimeout)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySamplingRate, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvTelemetryEnvironment, cfg.Telemetry.Environment)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
