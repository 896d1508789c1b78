// SPDX-License-Identifier: MIT

// Command recipefeed cooks media feeds from recipes and serves them over
// HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/recipefeed/internal/config"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/version"
)

// envConfigPath names the config file when --config is not given.
const envConfigPath = config.EnvPrefix + "CONFIG"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "recipefeed",
		Short:         "Recipe-driven media feed pipeline",
		Long:          "recipefeed downloads media catalogues, translates them into a browsable container tree with declarative recipes and serves the result over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file (env "+envConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newCookCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) path() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(envConfigPath))
}

// load reads the effective configuration and configures logging from it.
func (o *rootOptions) load() (config.AppConfig, *config.Loader, error) {
	loader := config.NewLoader(o.path(), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	return cfg, loader, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "recipefeed", version.String())
			return err
		},
	}
}
