// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// ToFileConfig maps cfg back to the YAML schema. Every field is written so
// the file documents the effective values.
func ToFileConfig(cfg AppConfig) FileConfig {
	return FileConfig{
		LogLevel:         cfg.LogLevel,
		LogService:       cfg.LogService,
		AssetsDir:        cfg.AssetsDir,
		DataLoaderConfig: cfg.DataLoaderConfig,
		Navigator:        cfg.Navigator,
		RecipesDir:       cfg.RecipesDir,
		Cache: CacheFileConfig{
			Backend:         cfg.Cache.Backend,
			MaxEntries:      ptr(cfg.Cache.MaxEntries),
			CleanupInterval: cfg.Cache.CleanupInterval.String(),
			RedisAddr:       cfg.Cache.RedisAddr,
			RedisDB:         ptr(cfg.Cache.RedisDB),
			RedisPrefix:     cfg.Cache.RedisPrefix,
			BadgerDir:       cfg.Cache.BadgerDir,
		},
		HTTP: HTTPFileConfig{
			Timeout:          cfg.HTTP.Timeout.String(),
			RateLimit:        ptr(cfg.HTTP.RateLimit),
			Burst:            ptr(cfg.HTTP.Burst),
			BreakerThreshold: ptr(cfg.HTTP.BreakerThreshold),
			BreakerReset:     cfg.HTTP.BreakerReset.String(),
			MaxBodyBytes:     ptr(cfg.HTTP.MaxBodyBytes),
		},
		Server: ServerFileConfig{
			ListenAddr:      cfg.Server.ListenAddr,
			RateLimit:       ptr(cfg.Server.RateLimit),
			ShutdownTimeout: cfg.Server.ShutdownTimeout.String(),
		},
		Telemetry: TelemetryFileConfig{
			Enabled:      ptr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: ptr(cfg.Telemetry.SamplingRate),
			Environment:  cfg.Telemetry.Environment,
		},
	}
}

// Save writes the configuration to disk atomically. The Redis password is
// never written; supply it through the environment.
func (m *Manager) Save(cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(m.configPath, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := yaml.NewEncoder(pending)
	enc.SetIndent(2)
	if err := enc.Encode(ToFileConfig(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
