package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/trxsrt/internal/captcha"
	"github.com/MimeLyc/trxsrt/internal/config"
	"github.com/MimeLyc/trxsrt/internal/credential"
	"github.com/MimeLyc/trxsrt/internal/language"
	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/MimeLyc/trxsrt/internal/retry"
	"github.com/MimeLyc/trxsrt/internal/service"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/log"
	"github.com/spf13/cobra"
)

func runTranslate(cmd *cobra.Command, input string, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return service.NewErrorWithCause(service.ErrConfig, "open log file", err)
	}
	defer closeLog()

	targets, err := resolveTargets(opts.to)
	if err != nil {
		return err
	}

	inputPath, err := filepath.Abs(input)
	if err != nil {
		return service.NewErrorWithCause(service.ErrValidation, "resolve input path", err)
	}
	if !strings.EqualFold(filepath.Ext(inputPath), ".srt") {
		return service.NewError(service.ErrValidation, "input file must be an .srt file").WithContext("path", inputPath)
	}
	outputDir := ""
	if opts.output != "" {
		if outputDir, err = filepath.Abs(opts.output); err != nil {
			return service.NewErrorWithCause(service.ErrValidation, "resolve output directory", err)
		}
	}

	store, err := credential.NewFileStore(cfg.Credential.Path)
	if err != nil {
		return service.NewErrorWithCause(service.ErrConfig, "open credential store", err)
	}
	cookie := initialCookie(cmd.ErrOrStderr(), opts.cookie, store)

	gtx := translator.NewGTXTranslator(cfg.GTX.Client())
	deeplx := translator.NewDeepLXTranslator(cfg.DeepLX.Client())
	policy := retry.NewPolicy(cfg.Retry.Policy(), nil)

	dispatcherOpts := []service.DispatcherOption{
		service.WithProgress(service.NewProgressFactory(cmd.ErrOrStderr())),
		service.WithBlockDetection(cfg.Translate.DetectBlocks),
	}
	serviceOpts := []service.ServiceOption{
		service.WithLanguagePause(cfg.Translate.LanguagePause()),
	}
	if cfg.Cache.Enabled {
		db, err := persistence.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return service.NewErrorWithCause(service.ErrConfig, "open translation cache", err).WithContext("path", cfg.Cache.Path)
		}
		defer db.Close()
		log.Debug("Using translation cache %s", cfg.Cache.Path)
		dispatcherOpts = append(dispatcherOpts, service.WithCache(db))
		serviceOpts = append(serviceOpts, service.WithJobRecorder(db))
	}

	rotation := translator.NewRotation(gtx, deeplx)
	guard := captcha.NewGuard(rotation.Primary(), store, captcha.NewTerminalPrompter(cfg.Translate.NonInteractive), cookie)
	dispatcher := service.NewDispatcher(rotation, policy, dispatcherOpts...)
	svc := service.NewTransService(dispatcher, guard, serviceOpts...)

	summary, err := svc.Run(cmd.Context(), service.RunRequest{
		InputPath:    inputPath,
		OutputDir:    outputDir,
		Source:       opts.from,
		Targets:      targets,
		AllLanguages: opts.allLanguages,
		Concurrency:  cfg.Translate.Concurrency,
	})
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		summary.Render(cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	if !summary.OK() {
		return errRunFailed
	}
	return nil
}

// loadConfig layers the flags the user actually set over file and environment.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var cfgOpts []config.Option
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfgOpts = append(cfgOpts, config.WithConcurrency(opts.concurrency))
	}
	if flags.Changed("non-interactive") {
		cfgOpts = append(cfgOpts, config.WithNonInteractive(opts.nonInteractive))
	}
	if flags.Changed("log-level") {
		cfgOpts = append(cfgOpts, config.WithLogLevel(opts.logLevel))
	}
	if flags.Changed("log-file") {
		cfgOpts = append(cfgOpts, config.WithLogFile(opts.logFile))
	}
	if flags.Changed("cache-db") {
		cfgOpts = append(cfgOpts, config.WithCachePath(opts.cacheDB))
	}

	cfg, path, exists, err := config.Load(opts.configPath, cfgOpts...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "load configuration")
	}
	if exists {
		log.Debug("Loaded configuration from %s", path)
	}
	return cfg, nil
}

// setupLogging points the global logger at w, mirrored into the log file when
// one is configured.
func setupLogging(cfg *config.Config, w io.Writer) (func(), error) {
	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		log.SetLogger(log.NewLoggerTo(w, level))
		return func() {}, nil
	}

	fileLogger, err := log.NewFileLogger(w, cfg.Log.File, level)
	if err != nil {
		return nil, err
	}
	log.SetLogger(fileLogger.Logger)
	return func() { _ = fileLogger.Close() }, nil
}

// resolveTargets maps --to values onto supported languages, dropping duplicates.
func resolveTargets(values []string) ([]language.Language, error) {
	seen := make(map[string]bool)
	targets := make([]language.Language, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		lang, ok := language.Resolve(value)
		if !ok {
			return nil, service.NewError(service.ErrValidation, fmt.Sprintf("unknown target language %q", value)).
				WithContext("available", language.Available())
		}
		if seen[lang.Code] {
			continue
		}
		seen[lang.Code] = true
		targets = append(targets, lang)
	}
	return targets, nil
}

// initialCookie prefers --cookie over the saved credential.
func initialCookie(w io.Writer, flagValue string, store credential.Store) string {
	if cookie := strings.TrimSpace(flagValue); cookie != "" {
		return cookie
	}
	saved, ok, err := store.Get()
	if err != nil {
		log.Warn("Could not read saved cookie: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	fmt.Fprintln(w, "Using saved cookie from previous session")
	return saved
}
