// Package scorer folds a keyword's latest stored signals into one
// composite score. The function is pure and deterministic: the same
// snapshot always produces the same score, and absent signals simply
// contribute nothing.
package scorer

import (
	"log/slog"

	"bookscout/internal/config"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

// Weights holds the point values and thresholds of every scoring
// component. The defaults encode the shipped ranking heuristics;
// individual fields are tunable through configuration.
type Weights struct {
	AutocompleteMax      int     // deepest suggestion position that still scores
	AutocompletePerSlot  float64 // points per position above the cutoff
	CompetitionLow       int
	CompetitionHigh      int
	CompetitionLowPts    float64
	CompetitionMidPts    float64
	DemandLow            float64
	DemandHigh           float64
	DemandLowPts         float64
	DemandMidPts         float64
	ImpressionsHigh      int
	ImpressionsHighPts   float64
	ImpressionsAnyPts    float64
	OrdersPts            float64
	OrdersBonusThreshold []int
	OrdersBonusPts       float64
}

// DefaultWeights returns the standard scoring table: autocomplete
// presence up to 100 points, low competition up to 30, demand up to
// 25, ad impressions up to 20, ad orders up to 50 with bonuses.
func DefaultWeights() Weights {
	return Weights{
		AutocompleteMax:      10,
		AutocompletePerSlot:  10,
		CompetitionLow:       50_000,
		CompetitionHigh:      200_000,
		CompetitionLowPts:    30,
		CompetitionMidPts:    15,
		DemandLow:            100_000,
		DemandHigh:           500_000,
		DemandLowPts:         25,
		DemandMidPts:         10,
		ImpressionsHigh:      100,
		ImpressionsHighPts:   20,
		ImpressionsAnyPts:    5,
		OrdersPts:            30,
		OrdersBonusThreshold: []int{5, 10},
		OrdersBonusPts:       10,
	}
}

// WeightsFromConfig overlays non-zero config values onto the defaults.
func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	w := DefaultWeights()
	if cfg.AutocompleteMax > 0 {
		w.AutocompleteMax = cfg.AutocompleteMax
	}
	if cfg.AutocompletePerSlot > 0 {
		w.AutocompletePerSlot = cfg.AutocompletePerSlot
	}
	if cfg.CompetitionLow > 0 {
		w.CompetitionLow = cfg.CompetitionLow
	}
	if cfg.CompetitionHigh > 0 {
		w.CompetitionHigh = cfg.CompetitionHigh
	}
	if cfg.CompetitionLowPts > 0 {
		w.CompetitionLowPts = cfg.CompetitionLowPts
	}
	if cfg.CompetitionMidPts > 0 {
		w.CompetitionMidPts = cfg.CompetitionMidPts
	}
	if cfg.DemandLow > 0 {
		w.DemandLow = cfg.DemandLow
	}
	if cfg.DemandHigh > 0 {
		w.DemandHigh = cfg.DemandHigh
	}
	if cfg.DemandLowPts > 0 {
		w.DemandLowPts = cfg.DemandLowPts
	}
	if cfg.DemandMidPts > 0 {
		w.DemandMidPts = cfg.DemandMidPts
	}
	if cfg.ImpressionsHigh > 0 {
		w.ImpressionsHigh = cfg.ImpressionsHigh
	}
	if cfg.ImpressionsHighPts > 0 {
		w.ImpressionsHighPts = cfg.ImpressionsHighPts
	}
	if cfg.ImpressionsAnyPts > 0 {
		w.ImpressionsAnyPts = cfg.ImpressionsAnyPts
	}
	if cfg.OrdersPts > 0 {
		w.OrdersPts = cfg.OrdersPts
	}
	if len(cfg.OrdersBonusThreshold) > 0 {
		w.OrdersBonusThreshold = cfg.OrdersBonusThreshold
	}
	if cfg.OrdersBonusPts > 0 {
		w.OrdersBonusPts = cfg.OrdersBonusPts
	}
	return w
}

// Score computes the composite score for one metric snapshot. All
// components are additive with no cross-term interactions; a nil
// snapshot scores exactly 0.
func (w Weights) Score(m *types.KeywordMetric) float64 {
	if m == nil {
		return 0
	}
	score := 0.0

	// Autocomplete presence: shoppers are typing this.
	if p := m.AutocompletePosition; p != nil && *p >= 1 && *p <= w.AutocompleteMax {
		score += float64(w.AutocompleteMax+1-*p) * w.AutocompletePerSlot
	}

	// Low competition: easier to rank for.
	if c := m.CompetitionCount; c != nil {
		switch {
		case *c < w.CompetitionLow:
			score += w.CompetitionLowPts
		case *c < w.CompetitionHigh:
			score += w.CompetitionMidPts
		}
	}

	// Demand proxy: the top results for this keyword sell well.
	if d := m.AvgRankTopResults; d != nil {
		switch {
		case *d < w.DemandLow:
			score += w.DemandLowPts
		case *d < w.DemandHigh:
			score += w.DemandMidPts
		}
	}

	// Real ads data is the highest quality signal.
	if imp := m.Impressions; imp != nil {
		switch {
		case *imp > w.ImpressionsHigh:
			score += w.ImpressionsHighPts
		case *imp >= 1:
			score += w.ImpressionsAnyPts
		}
	}
	if o := m.Orders; o != nil && *o > 0 {
		score += w.OrdersPts
		for _, threshold := range w.OrdersBonusThreshold {
			if *o >= threshold {
				score += w.OrdersBonusPts
			}
		}
	}

	return score
}

// Scorer batch-scores stored keywords.
type Scorer struct {
	store   *store.Store
	weights Weights
	logger  *slog.Logger
}

// New creates a Scorer with the given weight table.
func New(st *store.Store, weights Weights, logger *slog.Logger) *Scorer {
	return &Scorer{
		store:   st,
		weights: weights,
		logger:  logger.With("component", "scorer"),
	}
}

// ScoreKeyword recomputes and persists the score of one keyword.
func (s *Scorer) ScoreKeyword(keywordID int64) (float64, error) {
	_, metric, err := s.store.GetKeywordWithMetrics(keywordID)
	if err != nil {
		return 0, err
	}
	score := s.weights.Score(metric)
	if err := s.store.UpdateScore(keywordID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// ScoreAll scores active keywords and returns how many were scored.
// With recalculate unset, only keywords that have never been scored
// are touched.
func (s *Scorer) ScoreAll(recalculate bool) (int, error) {
	ids, err := s.store.ActiveKeywordIDs(!recalculate)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.ScoreKeyword(id); err != nil {
			return 0, err
		}
	}
	s.logger.Info("scoring complete", "scored", len(ids), "recalculate", recalculate)
	return len(ids), nil
}
