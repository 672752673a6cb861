package miner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"bookscout/internal/config"
	"bookscout/internal/fetcher"
	"bookscout/internal/ratelimit"
	"bookscout/internal/store"
)

// stubFetcher serves canned suggestion payloads keyed by prefix and
// records every query it saw.
type stubFetcher struct {
	mu       sync.Mutex
	queries  []string
	byPrefix map[string][]string
	failOn   map[string]bool
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, params url.Values, _ http.Header) (*fetcher.Response, error) {
	prefix := params.Get("prefix")
	s.mu.Lock()
	s.queries = append(s.queries, prefix)
	s.mu.Unlock()

	if s.failOn[prefix] {
		return &fetcher.Response{StatusCode: http.StatusInternalServerError}, nil
	}

	payload := struct {
		Suggestions []map[string]string `json:"suggestions"`
	}{}
	for _, v := range s.byPrefix[prefix] {
		payload.Suggestions = append(payload.Suggestions, map[string]string{"value": v})
	}
	body, _ := json.Marshal(payload)
	return &fetcher.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func (s *stubFetcher) Close() error { return nil }
func (s *stubFetcher) Type() string { return "stub" }

func (s *stubFetcher) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestMiner(t *testing.T, stub *stubFetcher) (*Miner, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	limits := ratelimit.NewRegistry(logger)
	limits.Register(ratelimit.SourceAutocomplete, time.Microsecond, 1)

	cfg := config.DefaultConfig()
	return New(stub, st, limits, cfg, logger), st
}

func TestMineDepthOneQueryFanout(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{}}
	m, _ := newTestMiner(t, stub)

	result, err := m.Mine(context.Background(), "Space Opera", 1, "kindle", nil)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	queries := stub.seen()
	if len(queries) != 27 {
		t.Fatalf("issued %d queries, want 27", len(queries))
	}
	if queries[0] != "space opera" {
		t.Errorf("first query = %q, want the canonical bare seed", queries[0])
	}
	if queries[1] != "space opera a" || queries[26] != "space opera z" {
		t.Errorf("expansion queries = %q .. %q", queries[1], queries[26])
	}
	if result.TotalMined != 0 {
		t.Errorf("mined %d keywords from empty suggestions", result.TotalMined)
	}
}

func TestMineBestPositionWins(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{
		"dragons":   {"other keyword", "dragon riders", "dragon riders of pern"},
		"dragons a": {"dragon riders"},
	}}
	m, _ := newTestMiner(t, stub)

	result, err := m.Mine(context.Background(), "dragons", 1, "kindle", nil)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	positions := map[string]int{}
	for _, kw := range result.Keywords {
		positions[kw.Keyword] = kw.Position
	}
	if positions["dragon riders"] != 1 {
		t.Errorf("dragon riders position = %d, want best-seen 1", positions["dragon riders"])
	}
	if positions["other keyword"] != 1 {
		t.Errorf("other keyword position = %d, want 1", positions["other keyword"])
	}
	if positions["dragon riders of pern"] != 3 {
		t.Errorf("dragon riders of pern position = %d, want 3", positions["dragon riders of pern"])
	}
}

func TestMineSortsByPositionThenKeyword(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{
		"seed":   {"zebra keyword", "apple keyword"},
		"seed b": {"banana keyword"},
	}}
	m, _ := newTestMiner(t, stub)

	result, err := m.Mine(context.Background(), "seed", 1, "kindle", nil)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	var got []string
	for _, kw := range result.Keywords {
		got = append(got, kw.Keyword)
	}
	want := []string{"banana keyword", "zebra keyword", "apple keyword"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("order = %v, want position asc then keyword asc = %v", got, want)
	}
}

func TestMineToleratesQueryFailure(t *testing.T) {
	stub := &stubFetcher{
		byPrefix: map[string][]string{"seed": {"good keyword"}},
		failOn:   map[string]bool{"seed a": true},
	}
	m, _ := newTestMiner(t, stub)

	result, err := m.Mine(context.Background(), "seed", 1, "kindle", nil)
	if err != nil {
		t.Fatalf("a single bad query must not fail the run: %v", err)
	}
	if result.TotalMined != 1 || result.Keywords[0].Keyword != "good keyword" {
		t.Errorf("result = %+v", result)
	}
	if len(stub.seen()) != 27 {
		t.Errorf("mining stopped early after a failed query")
	}
}

func TestMineDepthTwoExpandsResults(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{
		"seed":          {"found keyword"},
		"found keyword": {"never queried"}, // depth 2 adds suffixes, never the bare keyword
	}}
	m, _ := newTestMiner(t, stub)

	var lastTotal int
	result, err := m.Mine(context.Background(), "seed", 2, "kindle", func(_, total int) {
		lastTotal = total
	})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	// 27 phase-1 queries plus 26 expansions for the one found keyword.
	if n := len(stub.seen()); n != 53 {
		t.Errorf("issued %d queries, want 53", n)
	}
	if lastTotal != 53 {
		t.Errorf("progress total = %d, want grown to 53", lastTotal)
	}
	for _, q := range stub.seen() {
		if q == "found keyword" {
			t.Error("depth 2 re-queried a bare keyword")
		}
	}
	if result.TotalMined != 1 {
		t.Errorf("mined = %d, want 1", result.TotalMined)
	}
}

func TestMinePersistsAndCountsNew(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{
		"seed": {"first keyword", "second keyword"},
	}}
	m, st := newTestMiner(t, stub)

	result, err := m.Mine(context.Background(), "seed", 1, "kindle", nil)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if result.NewCount != 2 || result.ExistingCount != 0 {
		t.Errorf("new/existing = %d/%d, want 2/0", result.NewCount, result.ExistingCount)
	}

	kw, err := st.KeywordByText("first keyword")
	if err != nil {
		t.Fatalf("persisted keyword missing: %v", err)
	}
	_, metric, err := st.GetKeywordWithMetrics(kw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if metric == nil || metric.AutocompletePosition == nil || *metric.AutocompletePosition != 1 {
		t.Errorf("metric = %+v, want autocomplete position 1", metric)
	}

	again, err := m.Mine(context.Background(), "seed", 1, "kindle", nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.NewCount != 0 || again.ExistingCount != 2 {
		t.Errorf("re-mine new/existing = %d/%d, want 0/2", again.NewCount, again.ExistingCount)
	}
}

func TestMineCancelledKeepsPartial(t *testing.T) {
	stub := &stubFetcher{byPrefix: map[string][]string{
		"seed": {"kept keyword"},
	}}
	m, st := newTestMiner(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	fired := false
	result, err := m.Mine(ctx, "seed", 1, "kindle", func(completed, _ int) {
		if completed == 1 && !fired {
			fired = true
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result == nil || result.TotalMined != 1 {
		t.Fatalf("partial result = %+v, want the one mined keyword", result)
	}
	if _, err := st.KeywordByText("kept keyword"); err != nil {
		t.Errorf("partial result was not persisted: %v", err)
	}
}
