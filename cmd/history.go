package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/trxsrt/internal/config"
	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translation jobs recorded in the cache database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
				fmt.Fprintf(out, "No history yet (%s does not exist; enable the cache or pass --cache-db)\n", cfg.Cache.Path)
				return nil
			}

			store, err := persistence.NewSQLiteStore(cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("open cache database: %w", err)
			}
			defer store.Close()

			jobs, err := store.LoadJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No history yet")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					humanize.Time(job.CreatedAt),
					filepath.Base(job.InputPath),
					job.Source + " → " + job.Target,
					string(job.Status),
					humanize.Comma(int64(job.Lines)),
					humanize.Comma(int64(job.CachedLines)),
					truncate(job.Error, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "File", "Languages", "Status", "Lines", "Cached", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
