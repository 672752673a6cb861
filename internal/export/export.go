// Package export writes scored keywords to ads-ready outputs. File
// backends (CSV, JSONL) are the primary targets; a MongoDB mirror can
// fan out the same rows for downstream dashboards.
package export

import (
	"fmt"
	"log/slog"
	"sort"

	"bookscout/internal/store"
)

// Row is one exported keyword with its score and latest signals.
type Row struct {
	Keyword              string   `json:"keyword"`
	Category             string   `json:"category,omitempty"`
	Source               string   `json:"source"`
	Score                float64  `json:"score"`
	AutocompletePosition *int     `json:"autocomplete_position,omitempty"`
	CompetitionCount     *int     `json:"competition_count,omitempty"`
	EstimatedVolume      *int     `json:"estimated_volume,omitempty"`
	SuggestedBid         *float64 `json:"suggested_bid,omitempty"`
	Impressions          *int     `json:"impressions,omitempty"`
	Clicks               *int     `json:"clicks,omitempty"`
	Orders               *int     `json:"orders,omitempty"`
}

// Backend receives export rows. Write may be called once with the
// whole batch; Close flushes and releases the sink.
type Backend interface {
	Name() string
	Write(rows []Row) error
	Close() error
}

// Exporter assembles rows from the store and hands them to a backend.
type Exporter struct {
	store  *store.Store
	logger *slog.Logger
}

func New(st *store.Store, logger *slog.Logger) *Exporter {
	return &Exporter{store: st, logger: logger.With("component", "export")}
}

// Export writes every active keyword scoring at or above minScore,
// ordered best first. It returns the number of rows written.
func (e *Exporter) Export(backend Backend, minScore float64) (int, error) {
	keywords, err := e.store.ActiveKeywords()
	if err != nil {
		return 0, err
	}

	rows := make([]Row, 0, len(keywords))
	for _, kw := range keywords {
		if kw.Score < minScore {
			continue
		}
		row := Row{
			Keyword:  kw.Text,
			Category: kw.Category,
			Source:   kw.Source,
			Score:    kw.Score,
		}
		_, metric, err := e.store.GetKeywordWithMetrics(kw.ID)
		if err != nil {
			return 0, fmt.Errorf("load metrics for %q: %w", kw.Text, err)
		}
		if metric != nil {
			row.AutocompletePosition = metric.AutocompletePosition
			row.CompetitionCount = metric.CompetitionCount
			row.EstimatedVolume = metric.EstimatedVolume
			row.SuggestedBid = metric.SuggestedBid
			row.Impressions = metric.Impressions
			row.Clicks = metric.Clicks
			row.Orders = metric.Orders
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Keyword < rows[j].Keyword
	})

	if err := backend.Write(rows); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	e.logger.Info("export complete",
		"backend", backend.Name(),
		"rows", len(rows),
		"min_score", minScore,
	)
	return len(rows), nil
}
