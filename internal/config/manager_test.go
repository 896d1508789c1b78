// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults()
	cfg.AssetsDir = dir
	cfg.Cache.Backend = "badger"
	cfg.Cache.BadgerDir = filepath.Join(dir, "cache")
	cfg.Cache.RedisPassword = "secret"
	cfg.HTTP.Burst = 0
	cfg.Telemetry.Enabled = true

	path := filepath.Join(dir, "etc", "recipefeed.yaml")
	require.NoError(t, NewManager(path).Save(cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	fileCfg, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", fileCfg.Cache.Backend)

	loaded, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	cfg.Cache.RedisPassword = ""
	assert.Equal(t, cfg, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is removed")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
