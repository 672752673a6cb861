package types

import (
	"strings"
	"time"
)

// CanonicalASIN normalizes an ASIN for lookup: trimmed, upper-cased.
func CanonicalASIN(asin string) string {
	return strings.ToUpper(strings.TrimSpace(asin))
}

// Book is a tracked product identified by its marketplace ASIN.
type Book struct {
	ID        int64
	ASIN      string
	Title     string
	Author    string
	IsOwn     bool // distinguishes the user's own book from competitors
	AddedDate time.Time
	Notes     string
}

// BookSnapshot is one per-day capture of a book's market signals.
type BookSnapshot struct {
	BookID                  int64
	SnapshotDate            string // YYYY-MM-DD
	BSROverall              *int
	BSRCategory             string // JSON map of category name -> rank
	PriceKindle             *float64
	PricePaperback          *float64
	ReviewCount             *int
	AvgRating               *float64
	PageCount               *int
	EstimatedDailySales     *float64
	EstimatedMonthlyRevenue *float64
}

// RankingSource tags where a keyword ranking came from.
type RankingSource string

const (
	RankingSourceScrape     RankingSource = "scrape"
	RankingSourceDataForSEO RankingSource = "dataforseo"
)

// KeywordRanking records the organic search position of a book for a
// keyword on a calendar day. Position is 1-based and counts only
// non-sponsored results.
type KeywordRanking struct {
	KeywordID    int64
	Keyword      string
	BookID       int64
	SnapshotDate string
	Position     int
	Source       RankingSource
}
