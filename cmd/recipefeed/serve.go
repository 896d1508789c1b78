// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/recipefeed/internal/app/bootstrap"
	"github.com/ManuGH/recipefeed/internal/health"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	var noPreload bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cooked feeds over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := opts.load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			logger := xlog.WithComponent("cli")
			logger.Info().
				Str(xlog.FieldEvent, "startup").
				Str("version", version.Version).
				Str("commit", version.Commit).
				Str("addr", cfg.Server.ListenAddr).
				Str("config", loader.Path()).
				Msg("starting recipefeed")

			if err := health.PerformStartupChecks(cfg); err != nil {
				return fmt.Errorf("startup checks: %w", err)
			}

			ctx := cmd.Context()
			c, err := bootstrap.WireServices(ctx, cfg, loader)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				if err := c.Close(closeCtx); err != nil {
					logger.Error().Err(err).Str(xlog.FieldEvent, "shutdown.close_failed").Msg("releasing resources failed")
				}
			}()

			app, err := c.NewApp()
			if err != nil {
				return err
			}
			if noPreload {
				app.DisablePreload()
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override the configured listen address")
	cmd.Flags().BoolVar(&noPreload, "no-preload", false, "skip loading every feed at startup")
	return cmd
}
