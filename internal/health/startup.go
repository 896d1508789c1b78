// SPDX-License-Identifier: MIT

package health

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/config"
	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// PerformStartupChecks verifies the environment serve depends on before any
// component is built.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := xlog.WithComponent("startup-check")

	if err := checkDir(cfg.AssetsDir, false); err != nil {
		return fmt.Errorf("assets directory: %w", err)
	}
	for _, rel := range []string{cfg.Navigator, cfg.DataLoaderConfig} {
		if err := checkFileReadable(filepath.Join(cfg.AssetsDir, filepath.FromSlash(rel))); err != nil {
			return fmt.Errorf("asset %s: %w", rel, err)
		}
	}
	if cfg.Cache.Backend == cache.BackendBadger {
		if err := os.MkdirAll(cfg.Cache.BadgerDir, 0o750); err != nil {
			return fmt.Errorf("badger directory: %w", err)
		}
		if err := checkDir(cfg.Cache.BadgerDir, true); err != nil {
			return fmt.Errorf("badger directory: %w", err)
		}
	}
	if err := checkListenAddr(logger, cfg.Server.ListenAddr); err != nil {
		return err
	}

	logger.Info().Str(xlog.FieldEvent, "startup.checks_passed").Msg("startup checks passed")
	return nil
}

func checkDir(path string, writable bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if !writable {
		return nil
	}
	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("%s is not writable: %w", path, err)
	}
	return os.Remove(probe)
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- asset paths come from operator config
	if err != nil {
		return err
	}
	return f.Close()
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Debug().Str("addr", addr).Msg("listen address is valid")
	return nil
}
