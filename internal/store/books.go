package store

import (
	"database/sql"
	"errors"
	"time"

	"bookscout/internal/types"
)

// UpsertBook finds or creates a book by ASIN. Non-empty title/author
// values refresh the stored record. Returns the id and whether the
// book was newly inserted.
func (s *Store) UpsertBook(asin, title, author string, isOwn bool) (int64, bool, error) {
	asin = types.CanonicalASIN(asin)
	if asin == "" {
		return 0, false, &types.StoreError{Op: "upsert_book", Err: errors.New("empty asin")}
	}

	var id int64
	err := s.db.QueryRow(`SELECT id FROM books WHERE asin = ?`, asin).Scan(&id)
	switch {
	case err == nil:
		if title != "" || author != "" {
			_, err = s.db.Exec(
				`UPDATE books SET
					title  = CASE WHEN ? != '' THEN ? ELSE title END,
					author = CASE WHEN ? != '' THEN ? ELSE author END
				 WHERE id = ?`,
				title, title, author, author, id)
			if err != nil {
				return 0, false, &types.StoreError{Op: "upsert_book", Err: err}
			}
		}
		return id, false, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.Exec(
			`INSERT INTO books (asin, title, author, is_own, added_date) VALUES (?, ?, ?, ?, ?)`,
			asin, nullIfEmpty(title), nullIfEmpty(author), boolToInt(isOwn), nowISO())
		if err != nil {
			return 0, false, &types.StoreError{Op: "upsert_book", Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, &types.StoreError{Op: "upsert_book", Err: err}
		}
		return id, true, nil
	default:
		return 0, false, &types.StoreError{Op: "upsert_book", Err: err}
	}
}

// FindBookByASIN returns the book or types.ErrBookNotFound.
func (s *Store) FindBookByASIN(asin string) (*types.Book, error) {
	row := s.db.QueryRow(
		`SELECT id, asin, COALESCE(title,''), COALESCE(author,''), is_own, added_date, COALESCE(notes,'')
		 FROM books WHERE asin = ?`, types.CanonicalASIN(asin))
	return scanBook(row)
}

// AllBooks lists every tracked book.
func (s *Store) AllBooks() ([]types.Book, error) {
	rows, err := s.db.Query(
		`SELECT id, asin, COALESCE(title,''), COALESCE(author,''), is_own, added_date, COALESCE(notes,'')
		 FROM books ORDER BY added_date ASC`)
	if err != nil {
		return nil, &types.StoreError{Op: "all_books", Err: err}
	}
	defer rows.Close()

	var out []types.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreError{Op: "all_books", Err: err}
	}
	return out, nil
}

// RemoveBook deletes a book and, by cascade, its snapshots and
// rankings. Returns whether a book was found.
func (s *Store) RemoveBook(asin string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM books WHERE asin = ?`, types.CanonicalASIN(asin))
	if err != nil {
		return false, &types.StoreError{Op: "remove_book", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &types.StoreError{Op: "remove_book", Err: err}
	}
	return n > 0, nil
}

// AddBookSnapshot writes a per-day snapshot, merging field by field on
// same-day conflict like keyword metrics do.
func (s *Store) AddBookSnapshot(snap types.BookSnapshot) error {
	day := snap.SnapshotDate
	if day == "" {
		day = today()
	}
	_, err := s.db.Exec(`
		INSERT INTO book_snapshots
			(book_id, snapshot_date, bsr_overall, bsr_category, price_kindle,
			 price_paperback, review_count, avg_rating, page_count,
			 estimated_daily_sales, estimated_monthly_revenue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id, snapshot_date) DO UPDATE SET
			bsr_overall               = COALESCE(excluded.bsr_overall, book_snapshots.bsr_overall),
			bsr_category              = COALESCE(excluded.bsr_category, book_snapshots.bsr_category),
			price_kindle              = COALESCE(excluded.price_kindle, book_snapshots.price_kindle),
			price_paperback           = COALESCE(excluded.price_paperback, book_snapshots.price_paperback),
			review_count              = COALESCE(excluded.review_count, book_snapshots.review_count),
			avg_rating                = COALESCE(excluded.avg_rating, book_snapshots.avg_rating),
			page_count                = COALESCE(excluded.page_count, book_snapshots.page_count),
			estimated_daily_sales     = COALESCE(excluded.estimated_daily_sales, book_snapshots.estimated_daily_sales),
			estimated_monthly_revenue = COALESCE(excluded.estimated_monthly_revenue, book_snapshots.estimated_monthly_revenue)`,
		snap.BookID, day, snap.BSROverall, nullIfEmpty(snap.BSRCategory),
		snap.PriceKindle, snap.PricePaperback, snap.ReviewCount, snap.AvgRating,
		snap.PageCount, snap.EstimatedDailySales, snap.EstimatedMonthlyRevenue,
	)
	if err != nil {
		return &types.StoreError{Op: "add_book_snapshot", Err: err}
	}
	return nil
}

// LatestBookSnapshot returns the most recent snapshot, or nil.
func (s *Store) LatestBookSnapshot(bookID int64) (*types.BookSnapshot, error) {
	return s.bookSnapshotAt(bookID, 0)
}

// PreviousBookSnapshot returns the second most recent snapshot, or nil.
func (s *Store) PreviousBookSnapshot(bookID int64) (*types.BookSnapshot, error) {
	return s.bookSnapshotAt(bookID, 1)
}

func (s *Store) bookSnapshotAt(bookID int64, offset int) (*types.BookSnapshot, error) {
	snap := &types.BookSnapshot{BookID: bookID}
	var bsrCategory sql.NullString
	err := s.db.QueryRow(`
		SELECT snapshot_date, bsr_overall, bsr_category, price_kindle,
		       price_paperback, review_count, avg_rating, page_count,
		       estimated_daily_sales, estimated_monthly_revenue
		FROM book_snapshots
		WHERE book_id = ?
		ORDER BY snapshot_date DESC
		LIMIT 1 OFFSET ?`, bookID, offset).Scan(
		&snap.SnapshotDate, &snap.BSROverall, &bsrCategory, &snap.PriceKindle,
		&snap.PricePaperback, &snap.ReviewCount, &snap.AvgRating, &snap.PageCount,
		&snap.EstimatedDailySales, &snap.EstimatedMonthlyRevenue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreError{Op: "book_snapshot", Err: err}
	}
	snap.BSRCategory = bsrCategory.String
	return snap, nil
}

// AddRanking records the organic position of a book for a keyword on a
// day. A same-day re-probe overwrites the position and source.
func (s *Store) AddRanking(keywordID, bookID int64, day string, position int, source types.RankingSource) error {
	if day == "" {
		day = today()
	}
	_, err := s.db.Exec(`
		INSERT INTO keyword_rankings (keyword_id, book_id, snapshot_date, rank_position, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(keyword_id, book_id, snapshot_date) DO UPDATE SET
			rank_position = excluded.rank_position,
			source        = excluded.source`,
		keywordID, bookID, day, position, string(source))
	if err != nil {
		return &types.StoreError{Op: "add_ranking", Err: err}
	}
	return nil
}

// RankingsForBook lists the most recent ranking per keyword for a book,
// best positions first.
func (s *Store) RankingsForBook(bookID int64) ([]types.KeywordRanking, error) {
	rows, err := s.db.Query(`
		SELECT r.keyword_id, k.keyword, r.book_id, r.snapshot_date, r.rank_position, r.source
		FROM keyword_rankings r
		JOIN keywords k ON k.id = r.keyword_id
		WHERE r.book_id = ?
		  AND r.snapshot_date = (
			SELECT MAX(snapshot_date) FROM keyword_rankings
			WHERE keyword_id = r.keyword_id AND book_id = r.book_id
		  )
		ORDER BY r.rank_position ASC, k.keyword ASC`, bookID)
	if err != nil {
		return nil, &types.StoreError{Op: "rankings_for_book", Err: err}
	}
	defer rows.Close()

	var out []types.KeywordRanking
	for rows.Next() {
		var r types.KeywordRanking
		var source string
		if err := rows.Scan(&r.KeywordID, &r.Keyword, &r.BookID, &r.SnapshotDate, &r.Position, &source); err != nil {
			return nil, &types.StoreError{Op: "rankings_for_book", Err: err}
		}
		r.Source = types.RankingSource(source)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreError{Op: "rankings_for_book", Err: err}
	}
	return out, nil
}

func scanBook(row rowScanner) (*types.Book, error) {
	var b types.Book
	var isOwn int
	var added string
	err := row.Scan(&b.ID, &b.ASIN, &b.Title, &b.Author, &isOwn, &added, &b.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrBookNotFound
	}
	if err != nil {
		return nil, &types.StoreError{Op: "scan_book", Err: err}
	}
	b.IsOwn = isOwn == 1
	b.AddedDate, _ = time.Parse(time.RFC3339, added)
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
