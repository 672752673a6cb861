package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if cfg.Marketplace.Host == "" {
		return fmt.Errorf("marketplace.host must not be empty")
	}
	if cfg.Marketplace.CompletionURL == "" {
		return fmt.Errorf("marketplace.completion_url must not be empty")
	}

	if cfg.Rates.Autocomplete <= 0 || cfg.Rates.Search <= 0 || cfg.Rates.Product <= 0 || cfg.Rates.DataForSEO <= 0 {
		return fmt.Errorf("rates.* intervals must be > 0")
	}
	if cfg.Rates.Burst < 1 {
		return fmt.Errorf("rates.burst must be >= 1, got %d", cfg.Rates.Burst)
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.ProxyURL != "" {
		if _, err := url.Parse(cfg.Fetcher.ProxyURL); err != nil {
			return fmt.Errorf("invalid fetcher.proxy_url %q: %w", cfg.Fetcher.ProxyURL, err)
		}
	}

	if cfg.Prober.SoftBlockCooldown < 0 {
		return fmt.Errorf("prober.soft_block_cooldown must be >= 0")
	}

	if cfg.Export.Format != "csv" && cfg.Export.Format != "jsonl" {
		return fmt.Errorf("export.format must be 'csv' or 'jsonl', got %q", cfg.Export.Format)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q is not supported (valid: debug, info, warn, error)", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}
