// Package engine wires the pipeline components together behind one
// facade: it owns the store, the shared fetcher, the rate-limit
// registry, and the miner/prober/scorer built on top of them.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"bookscout/internal/ads"
	"bookscout/internal/config"
	"bookscout/internal/dataforseo"
	"bookscout/internal/fetcher"
	"bookscout/internal/miner"
	"bookscout/internal/prober"
	"bookscout/internal/product"
	"bookscout/internal/ratelimit"
	"bookscout/internal/scorer"
	"bookscout/internal/store"
	"bookscout/internal/tracker"
	"bookscout/internal/types"
)

// Engine is the top-level orchestrator the CLI talks to.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	store  *store.Store
	fetch  fetcher.Fetcher
	limits *ratelimit.Registry

	miner   *miner.Miner
	prober  *prober.Prober
	scorer  *scorer.Scorer
	tracker *tracker.Tracker
	seo     *dataforseo.Client
	ads     *ads.Importer
}

// New builds a fully wired Engine from config: opens the database,
// constructs the configured fetcher, and registers every rate-limited
// source with its minimum interval.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	f, err := buildFetcher(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	limits := ratelimit.NewRegistry(logger)
	limits.Register(ratelimit.SourceAutocomplete, cfg.Rates.Autocomplete, cfg.Rates.Burst)
	limits.Register(ratelimit.SourceSearch, cfg.Rates.Search, cfg.Rates.Burst)
	limits.Register(ratelimit.SourceProduct, cfg.Rates.Product, cfg.Rates.Burst)
	limits.Register(ratelimit.SourceDataForSEO, cfg.Rates.DataForSEO, cfg.Rates.Burst)

	seo := dataforseo.New(cfg.DataForSEO, limits, logger)
	scraper := product.New(f, limits, cfg, logger)

	e := &Engine{
		cfg:     cfg,
		logger:  logger.With("component", "engine"),
		store:   st,
		fetch:   f,
		limits:  limits,
		miner:   miner.New(f, st, limits, cfg, logger),
		prober:  prober.New(f, st, limits, cfg, seo, logger),
		scorer:  scorer.New(st, scorer.WeightsFromConfig(cfg.Scoring), logger),
		tracker: tracker.New(st, scraper, logger),
		seo:     seo,
		ads:     ads.New(st, logger),
	}
	return e, nil
}

func buildFetcher(cfg *config.Config, logger *slog.Logger) (fetcher.Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "browser":
		return fetcher.NewBrowserFetcher(cfg, logger)
	case "", "http":
		return fetcher.NewHTTPFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}
}

// Close releases the fetcher and the database.
func (e *Engine) Close() error {
	var first error
	if err := e.fetch.Close(); err != nil {
		first = err
	}
	if err := e.store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Store exposes the underlying store for read-heavy CLI paths.
func (e *Engine) Store() *store.Store { return e.store }

// Tracker exposes the competitor tracker.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// DataForSEO exposes the paid research client.
func (e *Engine) DataForSEO() *dataforseo.Client { return e.seo }

// Ads exposes the ads report importer.
func (e *Engine) Ads() *ads.Importer { return e.ads }

// Mine runs autocomplete discovery for a seed phrase.
func (e *Engine) Mine(ctx context.Context, seed string, depth int, department string, progress miner.ProgressFunc) (*types.MineResult, error) {
	return e.miner.Mine(ctx, seed, depth, department, progress)
}

// Probe checks where a book ranks for the stored keywords.
func (e *Engine) Probe(ctx context.Context, asin string, topN int, method prober.Method, progress prober.ProgressFunc) (*types.ProbeResult, error) {
	return e.prober.Probe(ctx, asin, topN, method, progress)
}

// ScoreKeyword recomputes and persists one keyword's score.
func (e *Engine) ScoreKeyword(keywordID int64) (float64, error) {
	return e.scorer.ScoreKeyword(keywordID)
}

// ScoreAll scores active keywords; with recalculate it rescores
// everything, otherwise only keywords without a score.
func (e *Engine) ScoreAll(recalculate bool) (int, error) {
	return e.scorer.ScoreAll(recalculate)
}
