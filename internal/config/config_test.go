package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Rates.Autocomplete != 500*time.Millisecond {
		t.Errorf("autocomplete interval = %s", cfg.Rates.Autocomplete)
	}
	if cfg.Marketplace.MarketplaceID == "" {
		t.Error("marketplace id should have a default")
	}
}

func TestDepartmentAlias(t *testing.T) {
	cfg := DefaultConfig()
	cases := map[string]string{
		"kindle": "digital-text",
		"books":  "stripbooks",
		"all":    "aps",
		// Unlisted departments pass through so callers can target any
		// search-alias value directly.
		"garden-tools": "garden-tools",
	}
	for dept, want := range cases {
		if got := cfg.Marketplace.DepartmentAlias(dept); got != want {
			t.Errorf("DepartmentAlias(%q) = %q, want %q", dept, got, want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero rate", func(c *Config) { c.Rates.Search = 0 }},
		{"zero burst", func(c *Config) { c.Rates.Burst = 0 }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "telnet" }},
		{"bad export format", func(c *Config) { c.Export.Format = "xlsx" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Marketplace.Host != "www.amazon.com" {
		t.Errorf("host = %q", cfg.Marketplace.Host)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookscout.yaml")
	body := []byte("database:\n  path: /tmp/other.db\nprober:\n  department: books\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Prober.Department != "books" {
		t.Errorf("department = %q", cfg.Prober.Department)
	}
	if cfg.Rates.Search != 2*time.Second {
		t.Errorf("unset fields should keep defaults, search = %s", cfg.Rates.Search)
	}
}

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}
