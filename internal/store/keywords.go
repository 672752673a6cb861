package store

import (
	"database/sql"
	"errors"
	"time"

	"bookscout/internal/types"
)

// UpsertKeyword inserts a keyword or, if it already exists, refreshes
// its last_updated timestamp. The text is canonicalized before use.
// Returns the row id and whether the keyword was newly inserted.
func (s *Store) UpsertKeyword(text, source, category string) (int64, bool, error) {
	text = types.CanonicalKeyword(text)
	if text == "" {
		return 0, false, &types.StoreError{Op: "upsert_keyword", Err: errors.New("empty keyword")}
	}
	now := nowISO()

	var id int64
	err := s.db.QueryRow(`SELECT id FROM keywords WHERE keyword = ?`, text).Scan(&id)
	switch {
	case err == nil:
		if _, err := s.db.Exec(`UPDATE keywords SET last_updated = ? WHERE id = ?`, now, id); err != nil {
			return 0, false, &types.StoreError{Op: "upsert_keyword", Err: err}
		}
		return id, false, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.Exec(
			`INSERT INTO keywords (keyword, source, category, first_seen, last_updated) VALUES (?, ?, ?, ?, ?)`,
			text, source, nullIfEmpty(category), now, now,
		)
		if err != nil {
			return 0, false, &types.StoreError{Op: "upsert_keyword", Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, &types.StoreError{Op: "upsert_keyword", Err: err}
		}
		return id, true, nil
	default:
		return 0, false, &types.StoreError{Op: "upsert_keyword", Err: err}
	}
}

// AddMetric writes a metric snapshot for the given day, merging into
// any existing row for that (keyword, day): only non-nil patch fields
// overwrite stored values, so a field once recorded is never erased by
// a later partial write. An empty day means today.
func (s *Store) AddMetric(keywordID int64, day string, patch types.MetricPatch) error {
	if day == "" {
		day = today()
	}
	_, err := s.db.Exec(`
		INSERT INTO keyword_metrics
			(keyword_id, snapshot_date, autocomplete_position, competition_count,
			 avg_rank_top_results, estimated_volume, volume_source, suggested_bid,
			 impressions, clicks, orders)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(keyword_id, snapshot_date) DO UPDATE SET
			autocomplete_position = COALESCE(excluded.autocomplete_position, keyword_metrics.autocomplete_position),
			competition_count     = COALESCE(excluded.competition_count, keyword_metrics.competition_count),
			avg_rank_top_results  = COALESCE(excluded.avg_rank_top_results, keyword_metrics.avg_rank_top_results),
			estimated_volume      = COALESCE(excluded.estimated_volume, keyword_metrics.estimated_volume),
			volume_source         = COALESCE(excluded.volume_source, keyword_metrics.volume_source),
			suggested_bid         = COALESCE(excluded.suggested_bid, keyword_metrics.suggested_bid),
			impressions           = COALESCE(excluded.impressions, keyword_metrics.impressions),
			clicks                = COALESCE(excluded.clicks, keyword_metrics.clicks),
			orders                = COALESCE(excluded.orders, keyword_metrics.orders)`,
		keywordID, day,
		patch.AutocompletePosition, patch.CompetitionCount, patch.AvgRankTopResults,
		patch.EstimatedVolume, patch.VolumeSource, patch.SuggestedBid,
		patch.Impressions, patch.Clicks, patch.Orders,
	)
	if err != nil {
		return &types.StoreError{Op: "add_metric", Err: err}
	}
	return nil
}

// UpdateScore stores the composite score for a keyword.
func (s *Store) UpdateScore(keywordID int64, score float64) error {
	res, err := s.db.Exec(`UPDATE keywords SET score = ?, last_updated = ? WHERE id = ?`,
		score, nowISO(), keywordID)
	if err != nil {
		return &types.StoreError{Op: "update_score", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrKeywordNotFound
	}
	return nil
}

// KeywordByText looks a keyword up by its canonical text.
func (s *Store) KeywordByText(text string) (*types.Keyword, error) {
	row := s.db.QueryRow(
		`SELECT id, keyword, source, COALESCE(category,''), first_seen, last_updated, is_active, COALESCE(score,0)
		 FROM keywords WHERE keyword = ?`, types.CanonicalKeyword(text))
	return scanKeyword(row)
}

// GetKeywordWithMetrics returns a keyword and its most recent metric
// snapshot (nil when the keyword has none).
func (s *Store) GetKeywordWithMetrics(keywordID int64) (*types.Keyword, *types.KeywordMetric, error) {
	row := s.db.QueryRow(
		`SELECT id, keyword, source, COALESCE(category,''), first_seen, last_updated, is_active, COALESCE(score,0)
		 FROM keywords WHERE id = ?`, keywordID)
	kw, err := scanKeyword(row)
	if err != nil {
		return nil, nil, err
	}

	m := &types.KeywordMetric{KeywordID: keywordID}
	err = s.db.QueryRow(`
		SELECT snapshot_date, autocomplete_position, competition_count,
		       avg_rank_top_results, estimated_volume, volume_source,
		       suggested_bid, impressions, clicks, orders
		FROM keyword_metrics
		WHERE keyword_id = ?
		ORDER BY snapshot_date DESC
		LIMIT 1`, keywordID).Scan(
		&m.SnapshotDate, &m.AutocompletePosition, &m.CompetitionCount,
		&m.AvgRankTopResults, &m.EstimatedVolume, &m.VolumeSource,
		&m.SuggestedBid, &m.Impressions, &m.Clicks, &m.Orders,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return kw, nil, nil
	}
	if err != nil {
		return nil, nil, &types.StoreError{Op: "get_keyword_with_metrics", Err: err}
	}
	return kw, m, nil
}

// ActiveKeywordIDs enumerates the ids of all active keywords. When
// unscoredOnly is set, only keywords with no stored score qualify.
func (s *Store) ActiveKeywordIDs(unscoredOnly bool) ([]int64, error) {
	query := `SELECT id FROM keywords WHERE is_active = 1`
	if unscoredOnly {
		query += ` AND score IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, &types.StoreError{Op: "active_keyword_ids", Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &types.StoreError{Op: "active_keyword_ids", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TopKeywordsByScore returns the n highest-scored active keywords.
func (s *Store) TopKeywordsByScore(n int) ([]types.Keyword, error) {
	rows, err := s.db.Query(
		`SELECT id, keyword, source, COALESCE(category,''), first_seen, last_updated, is_active, COALESCE(score,0)
		 FROM keywords
		 WHERE is_active = 1
		 ORDER BY score DESC NULLS LAST, keyword ASC
		 LIMIT ?`, n)
	if err != nil {
		return nil, &types.StoreError{Op: "top_keywords", Err: err}
	}
	defer rows.Close()
	return collectKeywords(rows)
}

// ActiveKeywords lists all active keywords ordered by text.
func (s *Store) ActiveKeywords() ([]types.Keyword, error) {
	rows, err := s.db.Query(
		`SELECT id, keyword, source, COALESCE(category,''), first_seen, last_updated, is_active, COALESCE(score,0)
		 FROM keywords WHERE is_active = 1 ORDER BY keyword ASC`)
	if err != nil {
		return nil, &types.StoreError{Op: "active_keywords", Err: err}
	}
	defer rows.Close()
	return collectKeywords(rows)
}

// KeywordCount reports the total number of keywords stored.
func (s *Store) KeywordCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM keywords`).Scan(&n); err != nil {
		return 0, &types.StoreError{Op: "keyword_count", Err: err}
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKeyword(row rowScanner) (*types.Keyword, error) {
	var kw types.Keyword
	var firstSeen, lastUpdated string
	var active int
	err := row.Scan(&kw.ID, &kw.Text, &kw.Source, &kw.Category, &firstSeen, &lastUpdated, &active, &kw.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrKeywordNotFound
	}
	if err != nil {
		return nil, &types.StoreError{Op: "scan_keyword", Err: err}
	}
	kw.Active = active == 1
	kw.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	kw.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &kw, nil
}

func collectKeywords(rows *sql.Rows) ([]types.Keyword, error) {
	var out []types.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *kw)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreError{Op: "collect_keywords", Err: err}
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
