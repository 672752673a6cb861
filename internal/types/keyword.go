package types

import (
	"strings"
	"time"
)

// Keyword is a discovered search term tracked by the store.
// The text is canonical (lower-cased, trimmed) and unique.
type Keyword struct {
	ID          int64
	Text        string
	Source      string // "autocomplete", "ads_report", "dataforseo", ...
	Category    string
	FirstSeen   time.Time
	LastUpdated time.Time
	Active      bool
	Score       float64
}

// CanonicalKeyword normalizes keyword text for storage and lookup.
// It is idempotent: applying it twice yields the same result.
func CanonicalKeyword(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// KeywordMetric is one signal snapshot for a keyword on a calendar day.
// At most one row exists per (keyword, day); same-day writes merge field
// by field, so a recorded value is never erased by a later partial write.
type KeywordMetric struct {
	KeywordID            int64
	SnapshotDate         string // YYYY-MM-DD
	AutocompletePosition *int
	CompetitionCount     *int
	AvgRankTopResults    *float64 // demand proxy: mean sales rank of top matches
	EstimatedVolume      *int
	VolumeSource         *string
	SuggestedBid         *float64
	Impressions          *int
	Clicks               *int
	Orders               *int
}

// MetricPatch carries the fields of a metric write. Nil fields are
// absent and leave any previously stored value untouched.
type MetricPatch struct {
	AutocompletePosition *int
	CompetitionCount     *int
	AvgRankTopResults    *float64
	EstimatedVolume      *int
	VolumeSource         *string
	SuggestedBid         *float64
	Impressions          *int
	Clicks               *int
	Orders               *int
}

// IntPtr, FloatPtr and StringPtr are small helpers for building patches.
func IntPtr(v int) *int           { return &v }
func FloatPtr(v float64) *float64 { return &v }
func StringPtr(v string) *string  { return &v }
