package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"bookscout/internal/product"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

// stubScraper serves canned details per ASIN.
type stubScraper struct {
	details map[string]*product.Details
	errs    map[string]error
}

func (s *stubScraper) Scrape(_ context.Context, asin string) (*product.Details, error) {
	if err, ok := s.errs[asin]; ok {
		return nil, err
	}
	if d, ok := s.details[asin]; ok {
		return d, nil
	}
	return nil, errors.New("no canned page")
}

func newTestTracker(t *testing.T, scraper PageScraper) (*Tracker, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:", logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, scraper, logger), st
}

func sampleDetails(asin string, rank int) *product.Details {
	return &product.Details{
		ASIN:          asin,
		Title:         "Sample Title",
		Author:        "Sample Author",
		PriceKindle:   types.FloatPtr(4.99),
		ReviewCount:   types.IntPtr(230),
		AvgRating:     types.FloatPtr(4.4),
		BSROverall:    types.IntPtr(rank),
		BSRCategories: map[string]int{"Cozy Mystery": 12},
	}
}

func TestAddScrapesAndSnapshots(t *testing.T) {
	scraper := &stubScraper{details: map[string]*product.Details{
		"B0TRACK001": sampleDetails("B0TRACK001", 15000),
	}}
	tr, st := newTestTracker(t, scraper)

	result, err := tr.Add(context.Background(), "B0TRACK001", "", true)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !result.IsNew || result.Book.Title != "Sample Title" || !result.Book.IsOwn {
		t.Errorf("result book = %+v", result.Book)
	}
	if result.Snapshot == nil {
		t.Fatal("no initial snapshot taken")
	}
	if result.Snapshot.EstimatedDailySales == nil || *result.Snapshot.EstimatedDailySales <= 0 {
		t.Errorf("sales estimate = %v", result.Snapshot.EstimatedDailySales)
	}
	if result.Snapshot.EstimatedMonthlyRevenue == nil || *result.Snapshot.EstimatedMonthlyRevenue <= 0 {
		t.Errorf("revenue estimate = %v", result.Snapshot.EstimatedMonthlyRevenue)
	}

	latest, err := st.LatestBookSnapshot(result.Book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || *latest.BSROverall != 15000 {
		t.Errorf("persisted snapshot = %+v", latest)
	}
	if latest.BSRCategory == "" {
		t.Error("category ranks not serialized")
	}
}

func TestAddWithFailedScrapeTracksBareASIN(t *testing.T) {
	tr, _ := newTestTracker(t, &stubScraper{})

	result, err := tr.Add(context.Background(), "B0NOPAGE00", "Named by Hand", false)
	if err != nil {
		t.Fatalf("a failed scrape must not block tracking: %v", err)
	}
	if result.Book.Title != "Named by Hand" {
		t.Errorf("title = %q", result.Book.Title)
	}
	if result.Snapshot != nil {
		t.Error("no snapshot should exist without scraped data")
	}
}

func TestAddChallengeAborts(t *testing.T) {
	scraper := &stubScraper{errs: map[string]error{"B0BLOCKED0": types.ErrChallenge}}
	tr, st := newTestTracker(t, scraper)

	_, err := tr.Add(context.Background(), "B0BLOCKED0", "", false)
	if !errors.Is(err, types.ErrChallenge) {
		t.Fatalf("err = %v, want ErrChallenge", err)
	}
	if _, err := st.FindBookByASIN("B0BLOCKED0"); !errors.Is(err, types.ErrBookNotFound) {
		t.Error("challenged add must not create the book")
	}
}

func TestSnapshotIsolatesFailures(t *testing.T) {
	scraper := &stubScraper{
		details: map[string]*product.Details{
			"B0GOOD0000": sampleDetails("B0GOOD0000", 9000),
		},
		errs: map[string]error{"B0BAD00000": types.ErrChallenge},
	}
	tr, st := newTestTracker(t, scraper)

	st.UpsertBook("B0GOOD0000", "Good", "", false)
	st.UpsertBook("B0BAD00000", "Bad", "", false)

	outcomes, err := tr.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("snapshot run: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}

	byASIN := map[string]SnapshotOutcome{}
	for _, o := range outcomes {
		byASIN[o.ASIN] = o
	}
	if byASIN["B0GOOD0000"].Snapshot == nil {
		t.Error("healthy book did not snapshot")
	}
	if !errors.Is(byASIN["B0BAD00000"].Err, types.ErrChallenge) {
		t.Errorf("challenged book err = %v", byASIN["B0BAD00000"].Err)
	}
}

func TestSnapshotChanges(t *testing.T) {
	scraper := &stubScraper{details: map[string]*product.Details{
		"B0DELTA000": sampleDetails("B0DELTA000", 20000),
	}}
	tr, st := newTestTracker(t, scraper)

	id, _, _ := st.UpsertBook("B0DELTA000", "Delta", "", false)
	st.AddBookSnapshot(types.BookSnapshot{
		BookID:       id,
		SnapshotDate: "2026-08-20",
		BSROverall:   types.IntPtr(30000),
		ReviewCount:  types.IntPtr(200),
	})

	outcomes, err := tr.Snapshot(context.Background(), "B0DELTA000")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}

	byLabel := map[string]Change{}
	for _, c := range outcomes[0].Changes {
		byLabel[c.Label] = c
	}
	// 30000 -> 20000: lower BSR is an improvement.
	if c := byLabel["BSR"]; c.Direction != "improved" || c.Old != 30000 || c.New != 20000 {
		t.Errorf("BSR change = %+v", c)
	}
	// 200 -> 230 reviews is also an improvement.
	if c := byLabel["Reviews"]; c.Direction != "improved" {
		t.Errorf("Reviews change = %+v", c)
	}
}

func TestCompareFilters(t *testing.T) {
	tr, st := newTestTracker(t, &stubScraper{})
	st.UpsertBook("B0AAAA0001", "A", "", false)
	st.UpsertBook("B0BBBB0002", "B", "", false)

	subset, err := tr.Compare([]string{"b0bbbb0002"})
	if err != nil {
		t.Fatal(err)
	}
	if len(subset) != 1 || subset[0].Book.ASIN != "B0BBBB0002" {
		t.Errorf("subset = %+v", subset)
	}

	all, err := tr.Compare(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}
}
