package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("BOOKSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bookscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".bookscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)

	v.SetDefault("marketplace.host", cfg.Marketplace.Host)
	v.SetDefault("marketplace.completion_url", cfg.Marketplace.CompletionURL)
	v.SetDefault("marketplace.marketplace_id", cfg.Marketplace.MarketplaceID)
	v.SetDefault("marketplace.departments", cfg.Marketplace.Departments)

	v.SetDefault("rates.autocomplete", cfg.Rates.Autocomplete)
	v.SetDefault("rates.search", cfg.Rates.Search)
	v.SetDefault("rates.product", cfg.Rates.Product)
	v.SetDefault("rates.dataforseo", cfg.Rates.DataForSEO)
	v.SetDefault("rates.burst", cfg.Rates.Burst)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_backoff", cfg.Fetcher.RetryBackoff)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)

	v.SetDefault("prober.soft_block_cooldown", cfg.Prober.SoftBlockCooldown)
	v.SetDefault("prober.department", cfg.Prober.Department)

	v.SetDefault("dataforseo.location_code", cfg.DataForSEO.LocationCode)

	v.SetDefault("export.format", cfg.Export.Format)
	v.SetDefault("export.output_path", cfg.Export.OutputPath)
	v.SetDefault("export.min_score", cfg.Export.MinScore)
	v.SetDefault("export.mongo_db", cfg.Export.MongoDB)
	v.SetDefault("export.mongo_coll", cfg.Export.MongoColl)

	v.SetDefault("seeds.path", cfg.Seeds.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
