package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"bookscout/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertKeywordCanonicalizes(t *testing.T) {
	s := newTestStore(t)

	id1, isNew, err := s.UpsertKeyword("  Cozy Mystery ", "autocomplete", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !isNew {
		t.Error("first upsert should report new")
	}

	id2, isNew, err := s.UpsertKeyword("cozy mystery", "autocomplete", "")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if isNew {
		t.Error("second upsert should not report new")
	}
	if id1 != id2 {
		t.Errorf("canonical variants got different ids: %d vs %d", id1, id2)
	}

	kw, err := s.KeywordByText("COZY MYSTERY")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if kw.Text != "cozy mystery" {
		t.Errorf("stored text = %q, want canonical form", kw.Text)
	}
}

func TestAddMetricMergesSameDay(t *testing.T) {
	s := newTestStore(t)
	id, _, err := s.UpsertKeyword("space opera", "autocomplete", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	day := "2026-08-30"
	if err := s.AddMetric(id, day, types.MetricPatch{AutocompletePosition: types.IntPtr(3)}); err != nil {
		t.Fatalf("first metric: %v", err)
	}
	// Second partial write on the same day must not erase the position.
	if err := s.AddMetric(id, day, types.MetricPatch{CompetitionCount: types.IntPtr(42000)}); err != nil {
		t.Fatalf("second metric: %v", err)
	}

	_, m, err := s.GetKeywordWithMetrics(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m == nil {
		t.Fatal("expected a metric snapshot")
	}
	if m.AutocompletePosition == nil || *m.AutocompletePosition != 3 {
		t.Errorf("autocomplete position = %v, want 3", m.AutocompletePosition)
	}
	if m.CompetitionCount == nil || *m.CompetitionCount != 42000 {
		t.Errorf("competition = %v, want 42000", m.CompetitionCount)
	}

	// A non-nil field does overwrite.
	if err := s.AddMetric(id, day, types.MetricPatch{AutocompletePosition: types.IntPtr(1)}); err != nil {
		t.Fatalf("third metric: %v", err)
	}
	_, m, err = s.GetKeywordWithMetrics(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *m.AutocompletePosition != 1 {
		t.Errorf("overwritten position = %d, want 1", *m.AutocompletePosition)
	}
}

func TestLatestMetricWins(t *testing.T) {
	s := newTestStore(t)
	id, _, _ := s.UpsertKeyword("dragon fantasy", "autocomplete", "")

	if err := s.AddMetric(id, "2026-08-28", types.MetricPatch{CompetitionCount: types.IntPtr(100)}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMetric(id, "2026-08-29", types.MetricPatch{CompetitionCount: types.IntPtr(200)}); err != nil {
		t.Fatal(err)
	}

	_, m, err := s.GetKeywordWithMetrics(id)
	if err != nil {
		t.Fatal(err)
	}
	if m.SnapshotDate != "2026-08-29" {
		t.Errorf("snapshot date = %s, want latest day", m.SnapshotDate)
	}
	if *m.CompetitionCount != 200 {
		t.Errorf("competition = %d, want 200", *m.CompetitionCount)
	}
}

func TestUpdateScoreUnknownKeyword(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateScore(999, 50)
	if !errors.Is(err, types.ErrKeywordNotFound) {
		t.Errorf("err = %v, want ErrKeywordNotFound", err)
	}
}

func TestActiveKeywordIDsUnscoredOnly(t *testing.T) {
	s := newTestStore(t)
	a, _, _ := s.UpsertKeyword("alpha", "seed", "")
	b, _, _ := s.UpsertKeyword("beta", "seed", "")

	if err := s.UpdateScore(a, 75); err != nil {
		t.Fatal(err)
	}

	ids, err := s.ActiveKeywordIDs(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("unscored ids = %v, want [%d]", ids, b)
	}

	ids, err = s.ActiveKeywordIDs(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("all active ids = %v, want 2 entries", ids)
	}
}

func TestTopKeywordsByScore(t *testing.T) {
	s := newTestStore(t)
	low, _, _ := s.UpsertKeyword("low scorer", "seed", "")
	high, _, _ := s.UpsertKeyword("high scorer", "seed", "")
	s.UpsertKeyword("never scored", "seed", "")

	if err := s.UpdateScore(low, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateScore(high, 90); err != nil {
		t.Fatal(err)
	}

	top, err := s.TopKeywordsByScore(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d keywords, want 2", len(top))
	}
	if top[0].Text != "high scorer" || top[1].Text != "low scorer" {
		t.Errorf("order = [%s, %s], want scored descending", top[0].Text, top[1].Text)
	}
}

func TestBookLifecycleAndCascade(t *testing.T) {
	s := newTestStore(t)

	id, isNew, err := s.UpsertBook("b0abc1234x", "My Book", "A. Author", true)
	if err != nil {
		t.Fatalf("upsert book: %v", err)
	}
	if !isNew {
		t.Error("first upsert should report new")
	}

	// ASIN is normalized to upper case.
	book, err := s.FindBookByASIN("B0ABC1234X")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if book.ID != id || !book.IsOwn {
		t.Errorf("book = %+v, want id %d own", book, id)
	}

	kid, _, _ := s.UpsertKeyword("thriller", "seed", "")
	if err := s.AddRanking(kid, id, "2026-08-30", 4, types.RankingSourceScrape); err != nil {
		t.Fatalf("add ranking: %v", err)
	}
	if err := s.AddBookSnapshot(types.BookSnapshot{BookID: id, SnapshotDate: "2026-08-30", BSROverall: types.IntPtr(12000)}); err != nil {
		t.Fatalf("add snapshot: %v", err)
	}

	removed, err := s.RemoveBook("B0ABC1234X")
	if err != nil || !removed {
		t.Fatalf("remove = %v, %v", removed, err)
	}

	if _, err := s.FindBookByASIN("B0ABC1234X"); !errors.Is(err, types.ErrBookNotFound) {
		t.Errorf("find after remove = %v, want ErrBookNotFound", err)
	}
	rankings, err := s.RankingsForBook(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 0 {
		t.Errorf("rankings survived cascade: %v", rankings)
	}
}

func TestBookSnapshotHistory(t *testing.T) {
	s := newTestStore(t)
	id, _, _ := s.UpsertBook("B0XYZ99990", "", "", false)

	for _, snap := range []types.BookSnapshot{
		{BookID: id, SnapshotDate: "2026-08-28", BSROverall: types.IntPtr(50000)},
		{BookID: id, SnapshotDate: "2026-08-29", BSROverall: types.IntPtr(41000)},
	} {
		if err := s.AddBookSnapshot(snap); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.LatestBookSnapshot(id)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || *latest.BSROverall != 41000 {
		t.Errorf("latest = %+v, want bsr 41000", latest)
	}

	prev, err := s.PreviousBookSnapshot(id)
	if err != nil {
		t.Fatal(err)
	}
	if prev == nil || *prev.BSROverall != 50000 {
		t.Errorf("previous = %+v, want bsr 50000", prev)
	}
}

func TestAddRankingSameDayOverwrite(t *testing.T) {
	s := newTestStore(t)
	bid, _, _ := s.UpsertBook("B0RANK0001", "", "", true)
	kid, _, _ := s.UpsertKeyword("werewolf romance", "autocomplete", "")

	if err := s.AddRanking(kid, bid, "2026-08-30", 9, types.RankingSourceScrape); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRanking(kid, bid, "2026-08-30", 5, types.RankingSourceDataForSEO); err != nil {
		t.Fatal(err)
	}

	rankings, err := s.RankingsForBook(bid)
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 1 {
		t.Fatalf("got %d rankings, want 1", len(rankings))
	}
	if rankings[0].Position != 5 || rankings[0].Source != types.RankingSourceDataForSEO {
		t.Errorf("ranking = %+v, want re-probed position 5", rankings[0])
	}
}

func TestInsertAdsTerms(t *testing.T) {
	s := newTestStore(t)

	n, err := s.InsertAdsTerms([]types.AdsSearchTerm{
		{SearchTerm: "cozy mystery box set", Impressions: 150, Clicks: 7, Orders: 2, Spend: 3.5, ReportDate: "2026-08-25"},
		{SearchTerm: ""}, // blank terms are skipped, not an error
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}

	term, err := s.LatestAdsTermFor("cozy mystery box set")
	if err != nil {
		t.Fatal(err)
	}
	if term == nil || term.Impressions != 150 || term.Orders != 2 {
		t.Errorf("term = %+v", term)
	}

	missing, err := s.LatestAdsTermFor("never imported")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown term, got %+v", missing)
	}
}
