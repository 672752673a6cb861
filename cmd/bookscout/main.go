package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bookscout/internal/config"
	"bookscout/internal/engine"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookscout",
		Short: "BookScout — keyword discovery and rank tracking for book marketplaces",
		Long: `BookScout finds and scores the search keywords that matter for a book.

Features:
  • Autocomplete keyword mining (depth-1 and depth-2 fan-out)
  • Reverse rank probing: where your ASIN ranks for each keyword
  • Composite keyword scoring from position, competition, and ads signals
  • Competitor tracking with sales-rank snapshots and sales estimates
  • Amazon Ads search-term report import
  • Optional paid reverse-ASIN lookup via DataForSEO
  • CSV/JSONL export with an optional MongoDB mirror
  • Daily and weekly automation runs for cron`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(mineCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(keywordsCmd())
	rootCmd.AddCommand(trackCmd())
	rootCmd.AddCommand(seedsCmd())
	rootCmd.AddCommand(importAdsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(automateCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BookScout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Database:\n")
			fmt.Printf("  Path:              %s\n", cfg.Database.Path)
			fmt.Printf("\nMarketplace:\n")
			fmt.Printf("  Host:              %s\n", cfg.Marketplace.Host)
			fmt.Printf("  Marketplace ID:    %s\n", cfg.Marketplace.MarketplaceID)
			fmt.Printf("\nRates:\n")
			fmt.Printf("  Autocomplete:      %s\n", cfg.Rates.Autocomplete)
			fmt.Printf("  Search:            %s\n", cfg.Rates.Search)
			fmt.Printf("  Product:           %s\n", cfg.Rates.Product)
			fmt.Printf("  DataForSEO:        %s\n", cfg.Rates.DataForSEO)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Retries:       %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nProber:\n")
			fmt.Printf("  Department:        %s\n", cfg.Prober.Department)
			fmt.Printf("  Soft-Block Cooldown: %s\n", cfg.Prober.SoftBlockCooldown)
			fmt.Printf("\nDataForSEO:\n")
			fmt.Printf("  Configured:        %v\n", cfg.DataForSEO.Login != "" && cfg.DataForSEO.APIKey != "")
			fmt.Printf("\nExport:\n")
			fmt.Printf("  Format:            %s\n", cfg.Export.Format)
			fmt.Printf("  Output Path:       %s\n", cfg.Export.OutputPath)
			fmt.Printf("  Min Score:         %.0f\n", cfg.Export.MinScore)
			fmt.Printf("  Mongo Mirror:      %v\n", cfg.Export.MongoURI != "")
			fmt.Printf("\nSeeds:\n")
			fmt.Printf("  Path:              %s\n", cfg.Seeds.Path)
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// openEngine loads config and builds the wired engine. The caller owns
// the Close.
func openEngine() (*engine.Engine, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return eng, cfg, logger, nil
}

// interruptibleContext returns a context cancelled by SIGINT/SIGTERM so
// long runs stop at the next keyword and keep partial results.
func interruptibleContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
