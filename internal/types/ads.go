package types

import "time"

// AdsSearchTerm is one row of an imported ads search-term report.
type AdsSearchTerm struct {
	ID           int64
	CampaignName string
	AdGroup      string
	SearchTerm   string
	MatchType    string
	Impressions  int
	Clicks       int
	CTR          float64
	Spend        float64
	Sales        float64
	ACOS         float64
	Orders       int
	ReportDate   string // YYYY-MM-DD
	ImportedAt   time.Time
}
