// Package ads imports Amazon Ads search-term report CSVs. The ads
// console exports vary: metadata rows above the header, shifting
// column names between report versions, percent signs and currency
// symbols inside numeric cells. The importer normalizes all of that
// and cross-references imported terms with the keyword table.
package ads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bookscout/internal/store"
	"bookscout/internal/types"
)

// columnAliases maps each canonical field to the column headings seen
// across report versions, in preference order.
var columnAliases = map[string][]string{
	"campaign_name": {"campaign name", "campaign"},
	"ad_group":      {"ad group name", "ad group", "adgroup"},
	"search_term": {
		"customer search term", "search term", "query",
		"search query", "keyword",
	},
	"match_type":  {"match type", "keyword match type", "targeting type"},
	"impressions": {"impressions", "impr", "impr."},
	"clicks":      {"clicks"},
	"ctr":         {"click-thru rate (ctr)", "ctr", "click-through rate", "click thru rate"},
	"spend":       {"spend", "cost", "total spend"},
	"sales": {
		"7 day total sales", "total sales", "sales",
		"7 day total sales (#)", "14 day total sales",
	},
	"acos": {
		"total advertising cost of sales (acos)", "acos",
		"total advertising cost of sales",
	},
	"orders": {
		"7 day total orders (#)", "7 day total orders", "total orders",
		"orders", "14 day total orders",
	},
}

// headerScanLimit is how many leading rows may be metadata before the
// real header.
const headerScanLimit = 10

// Importer loads search-term reports into the store.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Importer.
func New(st *store.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:  st,
		logger: logger.With("component", "ads"),
	}
}

// ImportResult summarizes one report import.
type ImportResult struct {
	Imported int
	Skipped  int
	Enriched int // keywords whose metrics absorbed ads signals
}

// ImportCSV imports a search-term report file. campaignFilter, when
// non-empty, keeps only rows whose campaign name contains it
// (case-insensitive).
func (im *Importer) ImportCSV(path, campaignFilter string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.importFrom(f, campaignFilter)
}

func (im *Importer) importFrom(r io.Reader, campaignFilter string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	headerIdx, columns := findHeader(records)
	if columns == nil {
		return nil, errors.New("no search-term report header found in csv")
	}
	termCol, ok := columns["search_term"]
	if !ok {
		return nil, errors.New("csv has no search term column")
	}

	result := &ImportResult{}
	var rows []types.AdsSearchTerm

	for _, record := range records[headerIdx+1:] {
		term := types.CanonicalKeyword(cell(record, termCol))
		if term == "" || term == "*" {
			result.Skipped++
			continue
		}
		campaign := cellFor(record, columns, "campaign_name")
		if campaignFilter != "" && !strings.Contains(strings.ToLower(campaign), strings.ToLower(campaignFilter)) {
			result.Skipped++
			continue
		}

		rows = append(rows, types.AdsSearchTerm{
			CampaignName: campaign,
			AdGroup:      cellFor(record, columns, "ad_group"),
			SearchTerm:   term,
			MatchType:    cellFor(record, columns, "match_type"),
			Impressions:  parseCount(cellFor(record, columns, "impressions")),
			Clicks:       parseCount(cellFor(record, columns, "clicks")),
			CTR:          parseNumeric(cellFor(record, columns, "ctr")),
			Spend:        parseNumeric(cellFor(record, columns, "spend")),
			Sales:        parseNumeric(cellFor(record, columns, "sales")),
			ACOS:         parseNumeric(cellFor(record, columns, "acos")),
			Orders:       parseCount(cellFor(record, columns, "orders")),
		})
	}

	inserted, err := im.store.InsertAdsTerms(rows)
	if err != nil {
		return nil, err
	}
	result.Imported = inserted

	// Cross-reference: every imported term becomes (or refreshes) a
	// keyword, and real performance data flows into its metrics.
	for _, row := range rows {
		id, _, err := im.store.UpsertKeyword(row.SearchTerm, "ads_report", "")
		if err != nil {
			return nil, err
		}
		if row.Impressions > 0 || row.Clicks > 0 || row.Orders > 0 {
			patch := types.MetricPatch{
				Impressions: types.IntPtr(row.Impressions),
				Clicks:      types.IntPtr(row.Clicks),
				Orders:      types.IntPtr(row.Orders),
			}
			if err := im.store.AddMetric(id, "", patch); err != nil {
				return nil, err
			}
			result.Enriched++
		}
	}

	im.logger.Info("ads report imported",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"enriched", result.Enriched,
	)
	return result, nil
}

// findHeader scans the leading rows for one that matches at least
// three known column names, and returns its index plus the canonical
// column mapping.
func findHeader(records [][]string) (int, map[string]int) {
	limit := len(records)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		columns := mapColumns(records[i])
		if len(columns) >= 3 {
			return i, columns
		}
	}
	return 0, nil
}

// mapColumns resolves a header row to canonical-name -> column-index.
// Exact alias matches win; a substring match is the fallback for
// decorated headings.
func mapColumns(header []string) map[string]int {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	columns := map[string]int{}
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			for i, h := range lower {
				if h == alias {
					columns[canonical] = i
					break
				}
			}
			if _, ok := columns[canonical]; ok {
				break
			}
		}
		if _, ok := columns[canonical]; ok {
			continue
		}
		for _, alias := range aliases {
			for i, h := range lower {
				if strings.Contains(h, alias) {
					columns[canonical] = i
					break
				}
			}
			if _, ok := columns[canonical]; ok {
				break
			}
		}
	}
	return columns
}

// cellFor returns the trimmed value of a mapped canonical column, or
// "" when the report lacks that column.
func cellFor(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok {
		return ""
	}
	return cell(record, idx)
}

// cell returns the trimmed value at idx, tolerating ragged rows.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseCount reads an integer cell, dropping thousands separators.
func parseCount(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// parseNumeric reads a float cell, dropping %, currency symbols, and
// thousands separators.
func parseNumeric(s string) float64 {
	s = strings.NewReplacer("%", "", "$", "", ",", "", "£", "", "€", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
