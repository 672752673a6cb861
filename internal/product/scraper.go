// Package product scrapes product detail pages for the signals the
// tracker snapshots: sales rank, prices, reviews, and page count.
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"bookscout/internal/config"
	"bookscout/internal/fetcher"
	"bookscout/internal/ratelimit"
	"bookscout/internal/types"
)

// Details is everything extracted from one product page.
type Details struct {
	ASIN           string
	Title          string
	Author         string
	PriceKindle    *float64
	PricePaperback *float64
	ReviewCount    *int
	AvgRating      *float64
	PageCount      *int
	BSROverall     *int
	BSRCategories  map[string]int // category name -> rank
}

// Scraper fetches and parses product detail pages.
type Scraper struct {
	fetch  fetcher.Fetcher
	limits *ratelimit.Registry
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Scraper. The registry must have the product source
// registered.
func New(f fetcher.Fetcher, limits *ratelimit.Registry, cfg *config.Config, logger *slog.Logger) *Scraper {
	return &Scraper{
		fetch:  f,
		limits: limits,
		cfg:    cfg,
		logger: logger.With("component", "product"),
	}
}

// Scrape fetches the detail page for an ASIN. A challenge page is
// surfaced as ErrChallenge: this path cannot usefully retry, the
// caller has to decide what a blocked snapshot means for its run.
func (s *Scraper) Scrape(ctx context.Context, asin string) (*Details, error) {
	if err := s.limits.Acquire(ratelimit.SourceProduct); err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("https://%s/dp/%s", s.cfg.Marketplace.Host, asin)
	resp, err := s.fetch.Fetch(ctx, pageURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if fetcher.IsChallengePage(resp.Body) {
		return nil, types.ErrChallenge
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New("unexpected product status"),
		}
	}

	details, err := parseProductPage(resp.Body, asin)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scraped product",
		"asin", asin,
		"title", details.Title,
		"bsr", details.BSROverall,
	)
	return details, nil
}
