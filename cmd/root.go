package main

import (
	"github.com/MimeLyc/trxsrt/internal/service"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath     string
	logLevel       string
	logFile        string
	from           string
	to             []string
	allLanguages   bool
	concurrency    int
	output         string
	cookie         string
	nonInteractive bool
	cacheDB        string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "trxsrt <file>",
		Short: "Translate SRT subtitle files using Google Translate (GTX) and DeepLX",
		Long: `trxsrt translates every text line of an SRT file into one or more languages.
Lines are spread over the GTX and DeepLX backends with retries and a circuit
breaker. When Google asks for a CAPTCHA you are prompted for the
GOOGLE_ABUSE_EXEMPTION cookie, which is saved for later runs.`,
		Example: `  trxsrt movie.srt --to es
  trxsrt movie.srt -f en -t es,fr -t de -o out/
  trxsrt movie.srt --all-languages --non-interactive --cookie "GOOGLE_ABUSE_EXEMPTION=..."`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args[0], opts)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&opts.configPath, "config", "", "Configuration file path (default ~/.config/trxsrt/config.toml)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	persistent.StringVar(&opts.logFile, "log-file", "", "Also append logs to this file")
	persistent.StringVar(&opts.cacheDB, "cache-db", "", "SQLite translation cache and history (enables the cache)")

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.from, "from", "f", service.AutoSource, "Source language (name or code), or auto to detect it")
	flags.StringSliceVarP(&opts.to, "to", "t", nil, "Target language (name or code); repeat or separate with commas")
	flags.BoolVarP(&opts.allLanguages, "all-languages", "a", false, "Translate to all supported languages")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", service.DefaultConcurrency, "Max concurrent requests per language")
	flags.StringVarP(&opts.output, "output", "o", "", "Output directory (default: same as input)")
	flags.StringVar(&opts.cookie, "cookie", "", "Google abuse exemption cookie (GOOGLE_ABUSE_EXEMPTION=...)")
	flags.BoolVar(&opts.nonInteractive, "non-interactive", false, "Exit with an error on CAPTCHA instead of prompting")
	rootCmd.MarkFlagsOneRequired("to", "all-languages")
	rootCmd.MarkFlagsMutuallyExclusive("to", "all-languages")

	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newCacheCommand(opts))

	return rootCmd
}
