// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuGH/recipefeed/internal/app/bootstrap"
)

func newCookCmd(opts *rootOptions) *cobra.Command {
	var recommendations, flat, all bool
	cmd := &cobra.Command{
		Use:   "cook [feed-index]",
		Short: "Run one feed's recipes and print the result as JSON",
		Long: "cook runs the navigator's global recipe at feed-index and prints the container tree.\n" +
			"With --recommendations it runs the recommendation recipe at feed-index instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("feed index must be a non-negative integer, got %q", args[0])
				}
				index = n
			}

			cfg, _, err := opts.load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			ctx := cmd.Context()
			c, err := bootstrap.WireServices(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(ctx) }()

			var out any
			switch {
			case recommendations:
				out, err = c.Feeds.LoadRecommendations(ctx, index)
			case all:
				out, err = c.Feeds.LoadAll(ctx)
			default:
				root, loadErr := c.Feeds.LoadRoot(ctx, index)
				out, err = root, loadErr
				if err == nil && flat {
					out = root.Flatten()
				}
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&recommendations, "recommendations", false, "run the recommendation recipe instead")
	cmd.Flags().BoolVar(&flat, "flat", false, "print the flattened content list instead of the tree")
	cmd.Flags().BoolVar(&all, "all", false, "merge every feed into one tree")
	cmd.MarkFlagsMutuallyExclusive("recommendations", "all")
	cmd.MarkFlagsMutuallyExclusive("recommendations", "flat")
	return cmd
}
