package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/trxsrt/internal/credential"
	"github.com/MimeLyc/trxsrt/internal/retry"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Config holds all application configuration.
// Values are layered: built-in defaults, then the TOML file, then environment
// variables, then Options (command-line flags).
//
// Environment Variables:
// - TRXSRT_CONCURRENCY: in-flight requests per language (default: 10)
// - TRXSRT_LANGUAGE_PAUSE_MS: pause between target languages (default: 500)
// - TRXSRT_NON_INTERACTIVE: never prompt for a cookie (default: false)
// - TRXSRT_RETRY_COUNT, TRXSRT_RETRY_BASE_DELAY_MS, TRXSRT_RETRY_FACTOR,
//   TRXSRT_RETRY_MAX_DELAY_MS, TRXSRT_RETRY_THRESHOLD: backoff and circuit breaker
// - TRXSRT_GTX_BASE_URL, TRXSRT_GTX_USER_AGENT, TRXSRT_GTX_TIMEOUT
// - TRXSRT_DEEPLX_URL, TRXSRT_DEEPLX_TIMEOUT
// - TRXSRT_COOKIE_FILE: saved CAPTCHA cookie location
// - TRXSRT_CACHE_ENABLED, TRXSRT_CACHE_DB: translation cache
// - TRXSRT_LOG_LEVEL, TRXSRT_LOG_FILE
type Config struct {
	Translate  TranslateConfig  `toml:"translate"`
	Retry      RetryConfig      `toml:"retry"`
	GTX        GTXConfig        `toml:"gtx"`
	DeepLX     DeepLXConfig     `toml:"deeplx"`
	Credential CredentialConfig `toml:"credential"`
	Cache      CacheConfig      `toml:"cache"`
	Log        LogConfig        `toml:"log"`
}

type TranslateConfig struct {
	Concurrency     int  `toml:"concurrency"`
	LanguagePauseMS int  `toml:"language_pause_ms"`
	NonInteractive  bool `toml:"non_interactive"`
	DetectBlocks    bool `toml:"detect_blocks"`
}

// LanguagePause is the delay between two target languages.
func (c TranslateConfig) LanguagePause() time.Duration {
	return time.Duration(c.LanguagePauseMS) * time.Millisecond
}

type RetryConfig struct {
	Count       int     `toml:"count"`
	BaseDelayMS int     `toml:"base_delay_ms"`
	Factor      float64 `toml:"factor"`
	MaxDelayMS  int     `toml:"max_delay_ms"`
	Threshold   int     `toml:"threshold"`
}

// Policy converts the file representation into retry.Config.
func (c RetryConfig) Policy() retry.Config {
	return retry.Config{
		Count:     c.Count,
		BaseDelay: time.Duration(c.BaseDelayMS) * time.Millisecond,
		Factor:    c.Factor,
		MaxDelay:  time.Duration(c.MaxDelayMS) * time.Millisecond,
		Threshold: c.Threshold,
	}
}

type GTXConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (c GTXConfig) Client() translator.GTXConfig {
	return translator.GTXConfig{
		BaseURL:   strings.TrimSpace(c.BaseURL),
		UserAgent: strings.TrimSpace(c.UserAgent),
		Timeout:   time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

type DeepLXConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (c DeepLXConfig) Client() translator.DeepLXConfig {
	return translator.DeepLXConfig{
		URL:     strings.TrimSpace(c.URL),
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

type CredentialConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Translate.Concurrency = n
	}
}

func WithNonInteractive(enabled bool) Option {
	return func(c *Config) {
		c.Translate.NonInteractive = enabled
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Log.Level = level
	}
}

func WithLogFile(path string) Option {
	return func(c *Config) {
		c.Log.File = path
	}
}

// WithCachePath also enables the cache.
func WithCachePath(path string) Option {
	return func(c *Config) {
		c.Cache.Path = path
		c.Cache.Enabled = strings.TrimSpace(path) != ""
	}
}

func WithCredentialPath(path string) Option {
	return func(c *Config) {
		c.Credential.Path = path
	}
}

// Default returns the built-in configuration before any file or environment
// overrides are applied.
func Default() Config {
	retryDefaults := retry.DefaultConfig()
	credentialPath, err := credential.DefaultPath()
	if err != nil {
		credentialPath = "~/.config/trxsrt/credentials.json"
	}
	return Config{
		Translate: TranslateConfig{
			Concurrency:     10,
			LanguagePauseMS: 500,
			DetectBlocks:    true,
		},
		Retry: RetryConfig{
			Count:       retryDefaults.Count,
			BaseDelayMS: int(retryDefaults.BaseDelay / time.Millisecond),
			Factor:      retryDefaults.Factor,
			MaxDelayMS:  int(retryDefaults.MaxDelay / time.Millisecond),
			Threshold:   retryDefaults.Threshold,
		},
		GTX: GTXConfig{
			BaseURL:        translator.DefaultGTXBaseURL,
			UserAgent:      translator.DefaultGTXUserAgent,
			TimeoutSeconds: 30,
		},
		DeepLX: DeepLXConfig{
			URL:            translator.DefaultDeepLXURL,
			TimeoutSeconds: 30,
		},
		Credential: CredentialConfig{
			Path: credentialPath,
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    "~/.cache/trxsrt/translations.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	return finish(&cfg, opts)
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/trxsrt/config.toml")
}

// Load locates and parses a configuration file, then layers environment
// variables and opts on top. A missing file is not an error; the bool result
// reports whether one was read.
func Load(path string, opts ...Option) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.applyEnv()
	loaded, err := finish(&cfg, opts)
	if err != nil {
		return nil, "", false, err
	}
	return loaded, resolvedPath, exists, nil
}

func finish(cfg *Config, opts []Option) (*Config, error) {
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Translate.Concurrency = getEnvInt("TRXSRT_CONCURRENCY", c.Translate.Concurrency)
	c.Translate.LanguagePauseMS = getEnvInt("TRXSRT_LANGUAGE_PAUSE_MS", c.Translate.LanguagePauseMS)
	c.Translate.NonInteractive = getEnvBool("TRXSRT_NON_INTERACTIVE", c.Translate.NonInteractive)
	c.Translate.DetectBlocks = getEnvBool("TRXSRT_DETECT_BLOCKS", c.Translate.DetectBlocks)

	c.Retry.Count = getEnvInt("TRXSRT_RETRY_COUNT", c.Retry.Count)
	c.Retry.BaseDelayMS = getEnvInt("TRXSRT_RETRY_BASE_DELAY_MS", c.Retry.BaseDelayMS)
	c.Retry.Factor = getEnvFloat("TRXSRT_RETRY_FACTOR", c.Retry.Factor)
	c.Retry.MaxDelayMS = getEnvInt("TRXSRT_RETRY_MAX_DELAY_MS", c.Retry.MaxDelayMS)
	c.Retry.Threshold = getEnvInt("TRXSRT_RETRY_THRESHOLD", c.Retry.Threshold)

	c.GTX.BaseURL = getEnvString("TRXSRT_GTX_BASE_URL", c.GTX.BaseURL)
	c.GTX.UserAgent = getEnvString("TRXSRT_GTX_USER_AGENT", c.GTX.UserAgent)
	c.GTX.TimeoutSeconds = getEnvInt("TRXSRT_GTX_TIMEOUT", c.GTX.TimeoutSeconds)
	c.DeepLX.URL = getEnvString("TRXSRT_DEEPLX_URL", c.DeepLX.URL)
	c.DeepLX.TimeoutSeconds = getEnvInt("TRXSRT_DEEPLX_TIMEOUT", c.DeepLX.TimeoutSeconds)

	c.Credential.Path = getEnvString("TRXSRT_COOKIE_FILE", c.Credential.Path)
	c.Cache.Enabled = getEnvBool("TRXSRT_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.Path = getEnvString("TRXSRT_CACHE_DB", c.Cache.Path)

	c.Log.Level = getEnvString("TRXSRT_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvString("TRXSRT_LOG_FILE", c.Log.File)
}

func (c *Config) normalize() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	var err error
	if c.Credential.Path, err = expandPath(strings.TrimSpace(c.Credential.Path)); err != nil {
		return err
	}
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return err
	}
	if c.Log.File, err = expandPath(strings.TrimSpace(c.Log.File)); err != nil {
		return err
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath resolves "~" and makes pathValue absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a commented configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
