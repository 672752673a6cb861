// Package prober determines which keywords a target product actually
// ranks for by scraping first-page search results and recording the
// organic position of the target ASIN. A paid reverse-lookup adapter
// can stand in for local scraping with the same output contract.
package prober

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"bookscout/internal/config"
	"bookscout/internal/fetcher"
	"bookscout/internal/ratelimit"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

// Method selects the probing strategy.
type Method string

const (
	// MethodScrape probes by fetching search-result pages locally.
	MethodScrape Method = "scrape"
	// MethodDelegated probes through the paid reverse-lookup adapter.
	MethodDelegated Method = "dataforseo"
)

// Adapter is the paid reverse-lookup contract. An unconfigured adapter
// returns an empty slice, never an error, for that condition.
type Adapter interface {
	ReverseLookup(ctx context.Context, asin string) ([]types.RankedKeyword, error)
}

// ProgressFunc reports worklist progress.
type ProgressFunc func(completed, total int)

// Prober runs reverse-lookup probes over the stored keyword list.
type Prober struct {
	fetch   fetcher.Fetcher
	store   *store.Store
	limits  *ratelimit.Registry
	cfg     *config.Config
	adapter Adapter
	logger  *slog.Logger

	// sleep is swapped out in tests so cooldowns don't wall-block.
	sleep func(time.Duration)
}

// New creates a Prober. adapter may be nil when no paid lookup is
// configured; MethodDelegated then yields zero keywords.
func New(f fetcher.Fetcher, st *store.Store, limits *ratelimit.Registry, cfg *config.Config, adapter Adapter, logger *slog.Logger) *Prober {
	return &Prober{
		fetch:   f,
		store:   st,
		limits:  limits,
		cfg:     cfg,
		adapter: adapter,
		logger:  logger.With("component", "prober"),
		sleep:   time.Sleep,
	}
}

// Probe checks the target ASIN against the keyword worklist: all
// active keywords, or the top-N by score when topN > 0. Every found
// ranking is persisted immediately. Cancellation is checked once per
// keyword; the partial result is returned as a normal completion with
// Cancelled set.
func (p *Prober) Probe(ctx context.Context, asin string, topN int, method Method, progress ProgressFunc) (*types.ProbeResult, error) {
	bookID, _, err := p.store.UpsertBook(asin, "", "", true)
	if err != nil {
		return nil, err
	}

	if method == MethodDelegated {
		return p.probeDelegated(ctx, asin, bookID, progress)
	}

	var worklist []types.Keyword
	if topN > 0 {
		worklist, err = p.store.TopKeywordsByScore(topN)
	} else {
		worklist, err = p.store.ActiveKeywords()
	}
	if err != nil {
		return nil, err
	}

	result := &types.ProbeResult{ASIN: asin, Total: len(worklist)}
	p.logger.Info("probe starting", "asin", asin, "keywords", len(worklist), "method", method)

	for i, kw := range worklist {
		if ctx.Err() != nil {
			result.Cancelled = true
			p.logger.Warn("probe cancelled", "attempted", result.Attempted, "total", result.Total)
			break
		}

		outcome := p.probeKeyword(ctx, kw.Text, asin)
		result.Attempted++

		switch outcome.Status {
		case types.ProbeFound:
			if err := p.store.AddRanking(kw.ID, bookID, "", outcome.Position, types.RankingSourceScrape); err != nil {
				return nil, err
			}
			result.Rankings = append(result.Rankings, types.KeywordRanking{
				KeywordID:    kw.ID,
				Keyword:      kw.Text,
				BookID:       bookID,
				SnapshotDate: today(),
				Position:     outcome.Position,
				Source:       types.RankingSourceScrape,
			})
			p.logger.Info("ranking found", "keyword", kw.Text, "position", outcome.Position)
		case types.ProbeNotFound:
			p.logger.Debug("not ranked", "keyword", kw.Text)
		case types.ProbeSoftBlocked:
			result.Blocked++
			p.logger.Warn("soft block, cooling down",
				"keyword", kw.Text,
				"cooldown", p.cfg.Prober.SoftBlockCooldown,
			)
			p.sleep(p.cfg.Prober.SoftBlockCooldown)
		case types.ProbeTransient:
			result.Failed++
			p.logger.Warn("probe failed", "keyword", kw.Text, "err", outcome.Err)
		}

		if progress != nil {
			progress(i+1, result.Total)
		}
	}

	p.logger.Info("probe complete",
		"asin", asin,
		"found", len(result.Rankings),
		"blocked", result.Blocked,
		"failed", result.Failed,
		"cancelled", result.Cancelled,
	)
	return result, nil
}

// probeKeyword fetches one department-scoped search page and locates
// the target in its organic results. All failures are tagged outcomes
// scoped to this keyword.
func (p *Prober) probeKeyword(ctx context.Context, keyword, asin string) types.ProbeOutcome {
	if err := p.limits.Acquire(ratelimit.SourceSearch); err != nil {
		return types.ProbeOutcome{Status: types.ProbeTransient, Err: err}
	}

	params := url.Values{}
	params.Set("k", keyword)
	params.Set("i", p.cfg.Marketplace.DepartmentAlias(p.cfg.Prober.Department))

	searchURL := fmt.Sprintf("https://%s/s", p.cfg.Marketplace.Host)
	resp, err := p.fetch.Fetch(ctx, searchURL, params, nil)
	if err != nil {
		return types.ProbeOutcome{Status: types.ProbeTransient, Err: err}
	}
	if fetcher.IsChallengePage(resp.Body) {
		return types.ProbeOutcome{Status: types.ProbeSoftBlocked}
	}
	if resp.StatusCode != http.StatusOK {
		return types.ProbeOutcome{Status: types.ProbeTransient, Err: &types.FetchError{
			URL:        searchURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New("unexpected search status"),
		}}
	}

	entries, err := parseSearchEntries(resp.Body)
	if err != nil {
		return types.ProbeOutcome{Status: types.ProbeTransient, Err: err}
	}
	if pos, found := organicPosition(entries, asin); found {
		return types.ProbeOutcome{Status: types.ProbeFound, Position: pos}
	}
	return types.ProbeOutcome{Status: types.ProbeNotFound}
}

// today is the snapshot day stamped on in-memory rankings; the store
// applies the same default when given an empty day.
func today() string {
	return time.Now().Format("2006-01-02")
}

// probeDelegated asks the paid adapter for all ranking keywords in one
// call. An empty answer is zero keywords found, not a failure.
func (p *Prober) probeDelegated(ctx context.Context, asin string, bookID int64, progress ProgressFunc) (*types.ProbeResult, error) {
	result := &types.ProbeResult{ASIN: asin}
	if p.adapter == nil {
		p.logger.Info("no reverse-lookup adapter configured", "asin", asin)
		return result, nil
	}

	ranked, err := p.adapter.ReverseLookup(ctx, asin)
	if err != nil {
		return nil, err
	}
	result.Total = len(ranked)

	for i, rk := range ranked {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		kid, _, err := p.store.UpsertKeyword(rk.Keyword, string(types.RankingSourceDataForSEO), "")
		if err != nil {
			return nil, err
		}
		if rk.SearchVolume > 0 {
			patch := types.MetricPatch{
				EstimatedVolume: types.IntPtr(rk.SearchVolume),
				VolumeSource:    types.StringPtr(string(types.RankingSourceDataForSEO)),
			}
			if err := p.store.AddMetric(kid, "", patch); err != nil {
				return nil, err
			}
		}
		if err := p.store.AddRanking(kid, bookID, "", rk.Position, types.RankingSourceDataForSEO); err != nil {
			return nil, err
		}
		result.Attempted++
		result.Rankings = append(result.Rankings, types.KeywordRanking{
			KeywordID:    kid,
			Keyword:      types.CanonicalKeyword(rk.Keyword),
			BookID:       bookID,
			SnapshotDate: today(),
			Position:     rk.Position,
			Source:       types.RankingSourceDataForSEO,
		})
		if progress != nil {
			progress(i+1, result.Total)
		}
	}
	return result, nil
}
