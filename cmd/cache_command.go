package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/MimeLyc/trxsrt/internal/config"
	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Translation cache maintenance",
	}
	cacheCmd.AddCommand(newCachePruneCommand(opts))
	return cacheCmd
}

func newCachePruneCommand(opts *rootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached translations not refreshed within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			var cfgOpts []config.Option
			if cmd.Flags().Changed("cache-db") {
				cfgOpts = append(cfgOpts, config.WithCachePath(opts.cacheDB))
			}
			cfg, _, _, err := config.Load(opts.configPath, cfgOpts...)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Cache.Path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "Nothing to prune (%s does not exist)\n", cfg.Cache.Path)
				return nil
			}

			store, err := persistence.NewSQLiteStore(cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("open cache database: %w", err)
			}
			defer store.Close()

			cutoff := time.Now().Add(-olderThan)
			n, err := store.DeleteTranslationsBefore(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			fmt.Fprintf(out, "Removed %s cached translations last used before %s\n",
				humanize.Comma(n), cutoff.Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold, e.g. 720h")
	return cmd
}
