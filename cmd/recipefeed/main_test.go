// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/recipefeed/internal/config"
	"github.com/ManuGH/recipefeed/internal/model"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSampleAssets(t *testing.T) {
	t.Helper()
	assets, err := filepath.Abs(filepath.Join("..", "..", "assets"))
	require.NoError(t, err)
	t.Setenv(config.EnvAssetsDir, assets)
	t.Setenv(envConfigPath, "")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "recipefeed v")
}

func TestCookCmd(t *testing.T) {
	useSampleAssets(t)

	out, err := run(t, "cook", "0", "--log-level", "error")
	require.NoError(t, err)
	var root model.Container
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "Root", root.Name)
	require.Len(t, root.Containers, 2)
	assert.Equal(t, "Nature", root.Containers[0].Name)

	out, err = run(t, "cook", "0", "--flat", "--log-level", "error")
	require.NoError(t, err)
	var contents []model.Content
	require.NoError(t, json.Unmarshal([]byte(out), &contents))
	assert.Len(t, contents, 3)

	out, err = run(t, "cook", "--recommendations", "--log-level", "error")
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []string{"102", "201", "101"}, ids)

	out, err = run(t, "cook", "--all", "--log-level", "error")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Len(t, root.Containers, 3)
}

func TestCookCmd_Errors(t *testing.T) {
	useSampleAssets(t)

	_, err := run(t, "cook", "x")
	assert.ErrorContains(t, err, "non-negative integer")

	_, err = run(t, "cook", "9", "--log-level", "error")
	assert.ErrorContains(t, err, "global recipe 9 of 2")

	_, err = run(t, "cook", "--recommendations", "--all")
	assert.Error(t, err)
}

func TestConfigCmds(t *testing.T) {
	useSampleAssets(t)
	path := filepath.Join(t.TempDir(), "recipefeed.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = run(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
	_, err = run(t, "config", "init", path, "--force")
	require.NoError(t, err)

	// The written defaults use a relative assets dir; the env override
	// points it at the sample assets.
	out, err = run(t, "config", "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = run(t, "config", "dump", "-c", path, "--format", "json")
	require.NoError(t, err)
	var dumped map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dumped))
	assert.Equal(t, "info", dumped["logLevel"])

	out, err = run(t, "config", "dump", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "logLevel: info")

	_, err = run(t, "config", "dump", "--format", "toml")
	assert.ErrorContains(t, err, "unknown format")

	require.NoError(t, os.WriteFile(path, []byte("bogus: true\n"), 0o600))
	_, err = run(t, "config", "validate", "-c", path)
	assert.ErrorContains(t, err, "configuration error")
}
