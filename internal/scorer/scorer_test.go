package scorer

import (
	"io"
	"log/slog"
	"testing"

	"bookscout/internal/config"
	"bookscout/internal/store"
	"bookscout/internal/types"
)

func TestScoreAllSignals(t *testing.T) {
	w := DefaultWeights()
	m := &types.KeywordMetric{
		AutocompletePosition: types.IntPtr(1),      // 100
		CompetitionCount:     types.IntPtr(40_000), // 30
		AvgRankTopResults:    types.FloatPtr(90_000),
		Impressions:          types.IntPtr(150), // 20
		Orders:               types.IntPtr(12),  // 30 + 10 + 10
	}
	if got := w.Score(m); got != 225.0 {
		t.Errorf("score = %v, want 225.0", got)
	}
}

func TestScoreEmptySnapshot(t *testing.T) {
	w := DefaultWeights()
	if got := w.Score(nil); got != 0 {
		t.Errorf("nil snapshot score = %v, want 0", got)
	}
	if got := w.Score(&types.KeywordMetric{}); got != 0 {
		t.Errorf("empty snapshot score = %v, want 0", got)
	}
}

func TestScoreAutocompleteBand(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		position int
		want     float64
	}{
		{1, 100},
		{5, 60},
		{10, 10},
		{11, 0},
		{0, 0},
	}
	for _, tc := range cases {
		m := &types.KeywordMetric{AutocompletePosition: types.IntPtr(tc.position)}
		if got := w.Score(m); got != tc.want {
			t.Errorf("position %d score = %v, want %v", tc.position, got, tc.want)
		}
	}
}

func TestScoreCompetitionBoundaries(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		competition int
		want        float64
	}{
		{49_999, 30},
		{50_000, 15}, // the low boundary falls into the middle band
		{199_999, 15},
		{200_000, 0},
	}
	for _, tc := range cases {
		m := &types.KeywordMetric{CompetitionCount: types.IntPtr(tc.competition)}
		if got := w.Score(m); got != tc.want {
			t.Errorf("competition %d score = %v, want %v", tc.competition, got, tc.want)
		}
	}
}

func TestScoreDemandAndImpressionBands(t *testing.T) {
	w := DefaultWeights()
	if got := w.Score(&types.KeywordMetric{AvgRankTopResults: types.FloatPtr(100_000)}); got != 10 {
		t.Errorf("demand boundary score = %v, want 10", got)
	}
	if got := w.Score(&types.KeywordMetric{AvgRankTopResults: types.FloatPtr(500_000)}); got != 0 {
		t.Errorf("demand upper boundary score = %v, want 0", got)
	}
	// Exactly 100 impressions is "any", not "high".
	if got := w.Score(&types.KeywordMetric{Impressions: types.IntPtr(100)}); got != 5 {
		t.Errorf("100 impressions score = %v, want 5", got)
	}
	if got := w.Score(&types.KeywordMetric{Impressions: types.IntPtr(101)}); got != 20 {
		t.Errorf("101 impressions score = %v, want 20", got)
	}
}

func TestScoreOrdersBonuses(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		orders int
		want   float64
	}{
		{0, 0},
		{1, 30},
		{5, 40},
		{10, 50},
	}
	for _, tc := range cases {
		m := &types.KeywordMetric{Orders: types.IntPtr(tc.orders)}
		if got := w.Score(m); got != tc.want {
			t.Errorf("orders %d score = %v, want %v", tc.orders, got, tc.want)
		}
	}
}

func TestScoreMonotonicWithMoreSignals(t *testing.T) {
	w := DefaultWeights()
	base := &types.KeywordMetric{AutocompletePosition: types.IntPtr(3)}
	richer := &types.KeywordMetric{
		AutocompletePosition: types.IntPtr(3),
		CompetitionCount:     types.IntPtr(10_000),
		Orders:               types.IntPtr(2),
	}
	if w.Score(richer) <= w.Score(base) {
		t.Errorf("adding signals lowered the score: %v vs %v", w.Score(richer), w.Score(base))
	}
}

func TestWeightsFromConfigOverrides(t *testing.T) {
	w := WeightsFromConfig(config.ScoringConfig{CompetitionLowPts: 50})
	if w.CompetitionLowPts != 50 {
		t.Errorf("override ignored: %v", w.CompetitionLowPts)
	}
	if w.AutocompletePerSlot != 10 {
		t.Errorf("unset fields must keep defaults, got %v", w.AutocompletePerSlot)
	}
}

func TestScoreAllModes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	a, _, _ := st.UpsertKeyword("scored keyword", "autocomplete", "")
	b, _, _ := st.UpsertKeyword("fresh keyword", "autocomplete", "")
	st.AddMetric(a, "", types.MetricPatch{AutocompletePosition: types.IntPtr(2)})
	st.AddMetric(b, "", types.MetricPatch{AutocompletePosition: types.IntPtr(4)})

	s := New(st, DefaultWeights(), logger)

	n, err := s.ScoreAll(false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("scored %d, want 2", n)
	}

	// Nothing left unscored.
	n, err = s.ScoreAll(false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second unscored-only pass scored %d, want 0", n)
	}

	n, err = s.ScoreAll(true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("recalculate pass scored %d, want 2", n)
	}

	kw, err := st.KeywordByText("scored keyword")
	if err != nil {
		t.Fatal(err)
	}
	if kw.Score != 90 {
		t.Errorf("persisted score = %v, want 90", kw.Score)
	}
}
