// Package store is the durable repository for keywords, per-day metric
// snapshots, tracked books, and per-day ranking snapshots, backed by
// SQLite. It exclusively owns persisted state; pipeline components stay
// stateless between invocations.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Schema for all bookscout tables. Applied on Open.
const Schema = `
CREATE TABLE IF NOT EXISTS keywords (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	category TEXT,
	first_seen TEXT NOT NULL,
	last_updated TEXT NOT NULL,
	is_active INTEGER DEFAULT 1,
	score REAL
);

CREATE TABLE IF NOT EXISTS keyword_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
	snapshot_date TEXT NOT NULL,
	estimated_volume INTEGER,
	volume_source TEXT,
	competition_count INTEGER,
	autocomplete_position INTEGER,
	avg_rank_top_results REAL,
	suggested_bid REAL,
	impressions INTEGER,
	clicks INTEGER,
	orders INTEGER,
	UNIQUE(keyword_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	asin TEXT NOT NULL UNIQUE,
	title TEXT,
	author TEXT,
	is_own INTEGER DEFAULT 0,
	added_date TEXT NOT NULL,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS book_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	snapshot_date TEXT NOT NULL,
	bsr_overall INTEGER,
	bsr_category TEXT,
	price_kindle REAL,
	price_paperback REAL,
	review_count INTEGER,
	avg_rating REAL,
	page_count INTEGER,
	estimated_daily_sales REAL,
	estimated_monthly_revenue REAL,
	UNIQUE(book_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS keyword_rankings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
	book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	snapshot_date TEXT NOT NULL,
	rank_position INTEGER,
	source TEXT,
	UNIQUE(keyword_id, book_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS ads_search_terms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_name TEXT,
	ad_group TEXT,
	search_term TEXT NOT NULL,
	keyword_match_type TEXT,
	impressions INTEGER,
	clicks INTEGER,
	ctr REAL,
	spend REAL,
	sales REAL,
	acos REAL,
	orders INTEGER,
	report_date TEXT NOT NULL,
	imported_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_keywords_keyword ON keywords(keyword);
CREATE INDEX IF NOT EXISTS idx_keywords_active ON keywords(is_active);
CREATE INDEX IF NOT EXISTS idx_keyword_metrics_keyword_id ON keyword_metrics(keyword_id);
CREATE INDEX IF NOT EXISTS idx_keyword_metrics_date ON keyword_metrics(snapshot_date);
CREATE INDEX IF NOT EXISTS idx_books_asin ON books(asin);
CREATE INDEX IF NOT EXISTS idx_book_snapshots_book_id ON book_snapshots(book_id);
CREATE INDEX IF NOT EXISTS idx_keyword_rankings_keyword ON keyword_rankings(keyword_id);
CREATE INDEX IF NOT EXISTS idx_keyword_rankings_book ON keyword_rankings(book_id);
CREATE INDEX IF NOT EXISTS idx_ads_search_terms_term ON ads_search_terms(search_term);
`

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The pipeline is sequential; a single connection avoids
	// SQLITE_BUSY without WAL tuning games.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}
	s.logger.Debug("database ready", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// today returns the current calendar day as stored in snapshot_date.
func today() string {
	return time.Now().Format("2006-01-02")
}

// nowISO returns the current instant in the timestamp format used for
// first_seen / last_updated / imported_at columns.
func nowISO() string {
	return time.Now().Format(time.RFC3339)
}
