package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for bookscout.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"    yaml:"database"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace" yaml:"marketplace"`
	Rates       RatesConfig       `mapstructure:"rates"       yaml:"rates"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"     yaml:"fetcher"`
	Prober      ProberConfig      `mapstructure:"prober"      yaml:"prober"`
	Scoring     ScoringConfig     `mapstructure:"scoring"     yaml:"scoring"`
	DataForSEO  DataForSEOConfig  `mapstructure:"dataforseo"  yaml:"dataforseo"`
	Export      ExportConfig      `mapstructure:"export"      yaml:"export"`
	Seeds       SeedsConfig       `mapstructure:"seeds"       yaml:"seeds"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MarketplaceConfig controls which marketplace and department are queried.
type MarketplaceConfig struct {
	Host          string            `mapstructure:"host"           yaml:"host"`
	CompletionURL string            `mapstructure:"completion_url" yaml:"completion_url"`
	MarketplaceID string            `mapstructure:"marketplace_id" yaml:"marketplace_id"`
	Departments   map[string]string `mapstructure:"departments"    yaml:"departments"`
}

// DepartmentAlias resolves a friendly department name ("kindle") to the
// search alias the marketplace expects ("digital-text"). Unknown names
// pass through unchanged.
func (m MarketplaceConfig) DepartmentAlias(department string) string {
	if alias, ok := m.Departments[department]; ok {
		return alias
	}
	return department
}

// RatesConfig holds the minimum interval between requests per source.
type RatesConfig struct {
	Autocomplete time.Duration `mapstructure:"autocomplete" yaml:"autocomplete"`
	Search       time.Duration `mapstructure:"search"       yaml:"search"`
	Product      time.Duration `mapstructure:"product"      yaml:"product"`
	DataForSEO   time.Duration `mapstructure:"dataforseo"   yaml:"dataforseo"`
	Burst        int           `mapstructure:"burst"        yaml:"burst"`
}

// FetcherConfig controls the HTTP transport.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"` // http or browser
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"     yaml:"retry_backoff"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	ProxyURL        string        `mapstructure:"proxy_url"         yaml:"proxy_url"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// ProberConfig controls the reverse lookup prober.
type ProberConfig struct {
	SoftBlockCooldown time.Duration `mapstructure:"soft_block_cooldown" yaml:"soft_block_cooldown"`
	Department        string        `mapstructure:"department"          yaml:"department"`
}

// ScoringConfig overrides the composite scoring weights. Zero values
// fall back to the defaults; the table is tunable, not domain truth.
type ScoringConfig struct {
	AutocompleteMax      int     `mapstructure:"autocomplete_max"       yaml:"autocomplete_max"`
	AutocompletePerSlot  float64 `mapstructure:"autocomplete_per_slot"  yaml:"autocomplete_per_slot"`
	CompetitionLow       int     `mapstructure:"competition_low"        yaml:"competition_low"`
	CompetitionHigh      int     `mapstructure:"competition_high"       yaml:"competition_high"`
	CompetitionLowPts    float64 `mapstructure:"competition_low_pts"    yaml:"competition_low_pts"`
	CompetitionMidPts    float64 `mapstructure:"competition_mid_pts"    yaml:"competition_mid_pts"`
	DemandLow            float64 `mapstructure:"demand_low"             yaml:"demand_low"`
	DemandHigh           float64 `mapstructure:"demand_high"            yaml:"demand_high"`
	DemandLowPts         float64 `mapstructure:"demand_low_pts"         yaml:"demand_low_pts"`
	DemandMidPts         float64 `mapstructure:"demand_mid_pts"         yaml:"demand_mid_pts"`
	ImpressionsHigh      int     `mapstructure:"impressions_high"       yaml:"impressions_high"`
	ImpressionsHighPts   float64 `mapstructure:"impressions_high_pts"   yaml:"impressions_high_pts"`
	ImpressionsAnyPts    float64 `mapstructure:"impressions_any_pts"    yaml:"impressions_any_pts"`
	OrdersPts            float64 `mapstructure:"orders_pts"             yaml:"orders_pts"`
	OrdersBonusThreshold []int   `mapstructure:"orders_bonus_threshold" yaml:"orders_bonus_threshold"`
	OrdersBonusPts       float64 `mapstructure:"orders_bonus_pts"       yaml:"orders_bonus_pts"`
}

// DataForSEOConfig holds paid adapter credentials.
type DataForSEOConfig struct {
	Login        string `mapstructure:"login"         yaml:"login"`
	APIKey       string `mapstructure:"api_key"       yaml:"api_key"`
	LocationCode int    `mapstructure:"location_code" yaml:"location_code"`
}

// ExportConfig controls keyword report export.
type ExportConfig struct {
	Format     string  `mapstructure:"format"      yaml:"format"` // csv or jsonl
	OutputPath string  `mapstructure:"output_path" yaml:"output_path"`
	MinScore   float64 `mapstructure:"min_score"   yaml:"min_score"`
	MongoURI   string  `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	MongoDB    string  `mapstructure:"mongo_db"    yaml:"mongo_db"`
	MongoColl  string  `mapstructure:"mongo_coll"  yaml:"mongo_coll"`
}

// SeedsConfig locates the seed keyword list.
type SeedsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/bookscout.db",
		},
		Marketplace: MarketplaceConfig{
			Host:          "www.amazon.com",
			CompletionURL: "https://completion.amazon.com/api/2017/suggestions",
			MarketplaceID: "ATVPDKIKX0DER",
			Departments: map[string]string{
				"kindle": "digital-text",
				"books":  "stripbooks",
				"all":    "aps",
			},
		},
		Rates: RatesConfig{
			Autocomplete: 500 * time.Millisecond,
			Search:       2 * time.Second,
			Product:      2 * time.Second,
			DataForSEO:   time.Second,
			Burst:        1,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  15 * time.Second,
			MaxRetries:      3,
			RetryBackoff:    time.Second,
			MaxBodySize:     5 * 1024 * 1024, // 5MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			UserAgents: []string{
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Prober: ProberConfig{
			SoftBlockCooldown: 30 * time.Second,
			Department:        "kindle",
		},
		DataForSEO: DataForSEOConfig{
			LocationCode: 2840, // US
		},
		Export: ExportConfig{
			Format:     "csv",
			OutputPath: "output/keywords.csv",
			MinScore:   25,
			MongoDB:    "bookscout",
			MongoColl:  "keyword_reports",
		},
		Seeds: SeedsConfig{
			Path: "data/seeds.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
