package store

import (
	"database/sql"
	"errors"
	"time"

	"bookscout/internal/types"
)

// InsertAdsTerms appends imported search-term report rows. Rows are
// append-only; a re-import of the same report adds a second batch with
// a fresh imported_at, and readers take the latest.
func (s *Store) InsertAdsTerms(terms []types.AdsSearchTerm) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &types.StoreError{Op: "insert_ads_terms", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ads_search_terms
			(campaign_name, ad_group, search_term, keyword_match_type,
			 impressions, clicks, ctr, spend, sales, acos, orders,
			 report_date, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, &types.StoreError{Op: "insert_ads_terms", Err: err}
	}
	defer stmt.Close()

	importedAt := nowISO()
	inserted := 0
	for _, t := range terms {
		if t.SearchTerm == "" {
			continue
		}
		day := t.ReportDate
		if day == "" {
			day = today()
		}
		_, err := stmt.Exec(
			nullIfEmpty(t.CampaignName), nullIfEmpty(t.AdGroup), t.SearchTerm,
			nullIfEmpty(t.MatchType), t.Impressions, t.Clicks, t.CTR,
			t.Spend, t.Sales, t.ACOS, t.Orders, day, importedAt)
		if err != nil {
			return 0, &types.StoreError{Op: "insert_ads_terms", Err: err}
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, &types.StoreError{Op: "insert_ads_terms", Err: err}
	}
	return inserted, nil
}

// LatestAdsTermFor returns the most recently imported row for a search
// term, or nil when the term never appeared in a report.
func (s *Store) LatestAdsTermFor(searchTerm string) (*types.AdsSearchTerm, error) {
	var t types.AdsSearchTerm
	var campaign, adGroup, matchType, importedAt string
	err := s.db.QueryRow(`
		SELECT id, COALESCE(campaign_name,''), COALESCE(ad_group,''), search_term,
		       COALESCE(keyword_match_type,''), impressions, clicks, ctr, spend,
		       sales, acos, orders, report_date, imported_at
		FROM ads_search_terms
		WHERE search_term = ?
		ORDER BY imported_at DESC, id DESC
		LIMIT 1`, searchTerm).Scan(
		&t.ID, &campaign, &adGroup, &t.SearchTerm, &matchType,
		&t.Impressions, &t.Clicks, &t.CTR, &t.Spend, &t.Sales, &t.ACOS,
		&t.Orders, &t.ReportDate, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreError{Op: "latest_ads_term", Err: err}
	}
	t.CampaignName = campaign
	t.AdGroup = adGroup
	t.MatchType = matchType
	t.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return &t, nil
}
