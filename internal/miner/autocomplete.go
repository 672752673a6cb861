// Package miner discovers keywords from the marketplace autocomplete
// endpoint. The suggestions returned there are what shoppers actually
// type, so mining a seed plus its a-z expansions maps the real search
// demand around a topic.
package miner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"bookscout/internal/config"
	"bookscout/internal/fetcher"
	"bookscout/internal/ratelimit"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// ProgressFunc reports mining progress. The total grows once the
// depth-2 fan-out is known.
type ProgressFunc func(completed, total int)

// Miner runs autocomplete discovery and persists what it finds.
type Miner struct {
	fetch  fetcher.Fetcher
	store  *store.Store
	limits *ratelimit.Registry
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Miner. The registry must have the autocomplete source
// registered before Mine is called.
func New(f fetcher.Fetcher, st *store.Store, limits *ratelimit.Registry, cfg *config.Config, logger *slog.Logger) *Miner {
	return &Miner{
		fetch:  f,
		store:  st,
		limits: limits,
		cfg:    cfg,
		logger: logger.With("component", "miner"),
	}
}

// Mine queries the seed keyword plus its 26 a-z suffix variants. At
// depth 2 every keyword found in the first phase is expanded with a-z
// again. Each keyword keeps the best (lowest) suggestion position seen
// across all queries. Results are upserted into the store before
// returning, so a cancelled run still keeps everything mined so far;
// in that case the partial result is returned together with ctx.Err().
func (m *Miner) Mine(ctx context.Context, seed string, depth int, department string, progress ProgressFunc) (*types.MineResult, error) {
	seed = types.CanonicalKeyword(seed)
	if seed == "" {
		return nil, errors.New("empty seed keyword")
	}
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}
	alias := m.cfg.Marketplace.DepartmentAlias(department)

	best := make(map[string]int)
	queries := make([]string, 0, 27)
	queries = append(queries, seed)
	for _, c := range letters {
		queries = append(queries, seed+" "+string(c))
	}

	completed := 0
	total := len(queries)
	runErr := m.runPhase(ctx, queries, alias, best, &completed, total, progress)

	if runErr == nil && depth >= 2 {
		depth1 := make([]string, 0, len(best))
		for kw := range best {
			depth1 = append(depth1, kw)
		}
		sort.Strings(depth1)

		expansion := make([]string, 0, len(depth1)*len(letters))
		for _, kw := range depth1 {
			for _, c := range letters {
				expansion = append(expansion, kw+" "+string(c))
			}
		}
		total = completed + len(expansion)
		runErr = m.runPhase(ctx, expansion, alias, best, &completed, total, progress)
	}

	result := &types.MineResult{
		Seed:       seed,
		Depth:      depth,
		Department: department,
	}
	keywords := make([]types.MinedKeyword, 0, len(best))
	for kw, pos := range best {
		keywords = append(keywords, types.MinedKeyword{Keyword: kw, Position: pos})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Position != keywords[j].Position {
			return keywords[i].Position < keywords[j].Position
		}
		return keywords[i].Keyword < keywords[j].Keyword
	})

	for i := range keywords {
		id, isNew, err := m.store.UpsertKeyword(keywords[i].Keyword, "autocomplete", seed)
		if err != nil {
			return nil, err
		}
		if err := m.store.AddMetric(id, "", types.MetricPatch{
			AutocompletePosition: types.IntPtr(keywords[i].Position),
		}); err != nil {
			return nil, err
		}
		keywords[i].IsNew = isNew
		if isNew {
			result.NewCount++
		} else {
			result.ExistingCount++
		}
	}
	result.Keywords = keywords
	result.TotalMined = len(keywords)

	m.logger.Info("mining complete",
		"seed", seed,
		"depth", depth,
		"department", department,
		"found", result.TotalMined,
		"new", result.NewCount,
	)
	return result, runErr
}

// runPhase issues one batch of queries, folding suggestions into best.
// A failed query logs and contributes nothing; cancellation stops the
// phase between queries.
func (m *Miner) runPhase(ctx context.Context, queries []string, alias string, best map[string]int, completed *int, total int, progress ProgressFunc) error {
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("mining cancelled", "completed", *completed, "total", total)
			return err
		}
		suggestions, err := m.suggest(ctx, q, alias)
		if err != nil {
			m.logger.Warn("autocomplete query failed", "prefix", q, "err", err)
		}
		for i, kw := range suggestions {
			pos := i + 1
			if old, ok := best[kw]; !ok || pos < old {
				best[kw] = pos
			}
		}
		*completed++
		if progress != nil {
			progress(*completed, total)
		}
	}
	return nil
}

type suggestResponse struct {
	Suggestions []struct {
		Value string `json:"value"`
	} `json:"suggestions"`
}

// suggest fetches suggestions for one prefix, in display order.
func (m *Miner) suggest(ctx context.Context, prefix, alias string) ([]string, error) {
	if err := m.limits.Acquire(ratelimit.SourceAutocomplete); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("mid", m.cfg.Marketplace.MarketplaceID)
	params.Set("alias", alias)
	params.Set("prefix", prefix)

	resp, err := m.fetch.Fetch(ctx, m.cfg.Marketplace.CompletionURL, params, http.Header{
		"Accept": []string{"application/json"},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.FetchError{
			URL:        m.cfg.Marketplace.CompletionURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New("autocomplete status"),
		}
	}

	var parsed suggestResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if kw := types.CanonicalKeyword(s.Value); kw != "" {
			out = append(out, kw)
		}
	}
	return out, nil
}
