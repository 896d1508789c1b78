// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/recipefeed/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(newConfigValidateCmd(opts), newConfigDumpCmd(opts), newConfigInitCmd())
	return cmd
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := opts.load(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			source := opts.path()
			if source == "" {
				source = "environment and defaults"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration from %s is valid\n", source)
			return err
		},
	}
}

func newConfigDumpCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (secrets omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			fileCfg := config.ToFileConfig(cfg)
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(fileCfg); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(fileCfg)
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a configuration file holding the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.NewManager(path).Save(config.Defaults()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
