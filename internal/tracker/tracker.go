// Package tracker manages the tracked book list: competitor ASINs and
// the user's own titles, with per-day market snapshots and change
// deltas between them.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"bookscout/internal/bsr"
	"bookscout/internal/product"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

// PageScraper is the product-detail contract the tracker snapshots
// through.
type PageScraper interface {
	Scrape(ctx context.Context, asin string) (*product.Details, error)
}

// Tracker coordinates book tracking and snapshots.
type Tracker struct {
	store   *store.Store
	scraper PageScraper
	logger  *slog.Logger
}

// New creates a Tracker.
func New(st *store.Store, scraper PageScraper, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:   st,
		scraper: scraper,
		logger:  logger.With("component", "tracker"),
	}
}

// AddResult reports what adding a book produced.
type AddResult struct {
	Book     *types.Book
	IsNew    bool
	Snapshot *types.BookSnapshot // nil when the initial scrape yielded nothing
}

// Add puts a book under tracking, scraping its page for metadata and
// an initial snapshot. A challenge page aborts the add; any other
// scrape failure still records the bare ASIN.
func (t *Tracker) Add(ctx context.Context, asin, name string, isOwn bool) (*AddResult, error) {
	details, err := t.scraper.Scrape(ctx, asin)
	if err != nil {
		if errors.Is(err, types.ErrChallenge) {
			return nil, err
		}
		t.logger.Warn("initial scrape failed, tracking bare asin", "asin", asin, "err", err)
		details = nil
	}

	title := name
	author := ""
	if details != nil {
		if title == "" {
			title = details.Title
		}
		author = details.Author
	}

	id, isNew, err := t.store.UpsertBook(asin, title, author, isOwn)
	if err != nil {
		return nil, err
	}
	result := &AddResult{IsNew: isNew}

	if details != nil {
		snap := t.buildSnapshot(id, details)
		if err := t.store.AddBookSnapshot(snap); err != nil {
			return nil, err
		}
		result.Snapshot = &snap
	}

	book, err := t.store.FindBookByASIN(asin)
	if err != nil {
		return nil, err
	}
	result.Book = book
	t.logger.Info("book tracked", "asin", book.ASIN, "title", book.Title, "new", isNew)
	return result, nil
}

// Remove drops a book from tracking, cascading away its snapshots and
// rankings. Returns whether the book existed.
func (t *Tracker) Remove(asin string) (bool, error) {
	removed, err := t.store.RemoveBook(asin)
	if err != nil {
		return false, err
	}
	if removed {
		t.logger.Info("book untracked", "asin", asin)
	}
	return removed, nil
}

// TrackedBook pairs a book with its most recent snapshot, if any.
type TrackedBook struct {
	Book   types.Book
	Latest *types.BookSnapshot
}

// List returns every tracked book with its latest snapshot.
func (t *Tracker) List() ([]TrackedBook, error) {
	books, err := t.store.AllBooks()
	if err != nil {
		return nil, err
	}
	out := make([]TrackedBook, 0, len(books))
	for _, b := range books {
		latest, err := t.store.LatestBookSnapshot(b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, TrackedBook{Book: b, Latest: latest})
	}
	return out, nil
}

// Compare returns the tracked books limited to the given ASINs, or all
// of them when none are named.
func (t *Tracker) Compare(asins []string) ([]TrackedBook, error) {
	all, err := t.List()
	if err != nil {
		return nil, err
	}
	if len(asins) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(asins))
	for _, a := range asins {
		want[types.CanonicalASIN(a)] = true
	}
	var out []TrackedBook
	for _, tb := range all {
		if want[tb.Book.ASIN] {
			out = append(out, tb)
		}
	}
	return out, nil
}

// Change is one field delta between two snapshots.
type Change struct {
	Label     string
	Old       float64
	New       float64
	Direction string // improved, declined, or changed
}

// SnapshotOutcome reports one book's snapshot attempt. A failed book
// never stops the rest of the run.
type SnapshotOutcome struct {
	ASIN     string
	Title    string
	Err      error
	Snapshot *types.BookSnapshot
	Changes  []Change
}

// Snapshot captures current market signals for one book, or for every
// tracked book when asin is empty. Challenge pages are recorded as
// that book's outcome and the run continues.
func (t *Tracker) Snapshot(ctx context.Context, asin string) ([]SnapshotOutcome, error) {
	var books []types.Book
	if asin != "" {
		book, err := t.store.FindBookByASIN(asin)
		if err != nil {
			return nil, err
		}
		books = []types.Book{*book}
	} else {
		var err error
		books, err = t.store.AllBooks()
		if err != nil {
			return nil, err
		}
	}

	outcomes := make([]SnapshotOutcome, 0, len(books))
	for _, book := range books {
		outcome := SnapshotOutcome{ASIN: book.ASIN, Title: book.Title}

		prev, err := t.store.LatestBookSnapshot(book.ID)
		if err != nil {
			return nil, err
		}

		details, err := t.scraper.Scrape(ctx, book.ASIN)
		if err != nil {
			t.logger.Warn("snapshot failed", "asin", book.ASIN, "err", err)
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}

		// Backfill metadata on books added before a successful scrape.
		if details.Title != "" && book.Title == "" {
			if _, _, err := t.store.UpsertBook(book.ASIN, details.Title, details.Author, book.IsOwn); err != nil {
				return nil, err
			}
			outcome.Title = details.Title
		}

		snap := t.buildSnapshot(book.ID, details)
		if err := t.store.AddBookSnapshot(snap); err != nil {
			return nil, err
		}
		outcome.Snapshot = &snap
		if prev != nil {
			outcome.Changes = calculateChanges(prev, &snap)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// buildSnapshot derives the stored snapshot, including sales estimates
// from the rank model, from scraped details.
func (t *Tracker) buildSnapshot(bookID int64, d *product.Details) types.BookSnapshot {
	snap := types.BookSnapshot{
		BookID:         bookID,
		BSROverall:     d.BSROverall,
		PriceKindle:    d.PriceKindle,
		PricePaperback: d.PricePaperback,
		ReviewCount:    d.ReviewCount,
		AvgRating:      d.AvgRating,
		PageCount:      d.PageCount,
	}
	if len(d.BSRCategories) > 0 {
		if encoded, err := json.Marshal(d.BSRCategories); err == nil {
			snap.BSRCategory = string(encoded)
		}
	}
	if d.BSROverall != nil {
		daily := bsr.EstimateDailySales(*d.BSROverall, bsr.USKindle)
		snap.EstimatedDailySales = types.FloatPtr(daily)

		price := d.PriceKindle
		if price == nil {
			price = d.PricePaperback
		}
		if price != nil {
			revenue := bsr.EstimateMonthlyRevenue(*d.BSROverall, *price, bsr.USKindle)
			snap.EstimatedMonthlyRevenue = types.FloatPtr(revenue)
		}
	}
	return snap
}

// calculateChanges diffs the comparable fields of two snapshots.
func calculateChanges(prev, cur *types.BookSnapshot) []Change {
	var changes []Change

	diff := func(label string, old, now *float64, lowerIsBetter *bool) {
		if old == nil || now == nil || *old == *now {
			return
		}
		c := Change{Label: label, Old: *old, New: *now, Direction: "changed"}
		if lowerIsBetter != nil {
			improved := *now < *old
			if !*lowerIsBetter {
				improved = *now > *old
			}
			if improved {
				c.Direction = "improved"
			} else {
				c.Direction = "declined"
			}
		}
		changes = append(changes, c)
	}

	lower, higher := true, false
	diff("BSR", intToFloat(prev.BSROverall), intToFloat(cur.BSROverall), &lower)
	diff("Reviews", intToFloat(prev.ReviewCount), intToFloat(cur.ReviewCount), &higher)
	diff("Rating", prev.AvgRating, cur.AvgRating, &higher)
	diff("Kindle Price", prev.PriceKindle, cur.PriceKindle, nil)
	return changes
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
