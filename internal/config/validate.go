package config

import (
	"fmt"
	"net/url"
	"strings"
)

var logLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	if c.Credential.Path == "" {
		return fmt.Errorf("credential.path is required")
	}
	if !logLevels[c.Log.Level] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

func (c *Config) validateTranslate() error {
	if c.Translate.Concurrency < 1 {
		return fmt.Errorf("translate.concurrency must be at least 1, got %d", c.Translate.Concurrency)
	}
	if c.Translate.LanguagePauseMS < 0 {
		return fmt.Errorf("translate.language_pause_ms must not be negative")
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := c.Retry
	if r.Count < 0 {
		return fmt.Errorf("retry.count must not be negative")
	}
	if r.BaseDelayMS < 0 {
		return fmt.Errorf("retry.base_delay_ms must not be negative")
	}
	if r.Factor < 1 {
		return fmt.Errorf("retry.factor must be at least 1, got %g", r.Factor)
	}
	if r.MaxDelayMS <= 0 {
		return fmt.Errorf("retry.max_delay_ms must be positive")
	}
	if r.Threshold < 1 {
		return fmt.Errorf("retry.threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateBackends() error {
	if err := validateURL("gtx.base_url", c.GTX.BaseURL); err != nil {
		return err
	}
	if err := validateURL("deeplx.url", c.DeepLX.URL); err != nil {
		return err
	}
	if c.GTX.TimeoutSeconds <= 0 {
		return fmt.Errorf("gtx.timeout_seconds must be positive")
	}
	if c.DeepLX.TimeoutSeconds <= 0 {
		return fmt.Errorf("deeplx.timeout_seconds must be positive")
	}
	return nil
}

func validateURL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
