// Package bsr converts Best Sellers Rank numbers into estimated
// sales using a calibrated power law: daily = k * bsr^(-a). The
// parameters are fit against publicly available rank-to-sales data
// points per marketplace.
package bsr

import "math"

// Model holds the power-law parameters for one marketplace.
type Model struct {
	K float64
	A float64
}

// Models keyed by marketplace. The fixed regional set the estimates
// are calibrated for; anything else falls back to USKindle.
var Models = map[string]Model{
	USKindle:    {K: 150000, A: 0.82},
	USPaperback: {K: 80000, A: 0.78},
	USAudiobook: {K: 50000, A: 0.80},
	UKKindle:    {K: 80000, A: 0.80},
}

const (
	USKindle    = "us_kindle"
	USPaperback = "us_paperback"
	USAudiobook = "us_audiobook"
	UKKindle    = "uk_kindle"
)

// Royalty rates: 70% inside the $2.99-$9.99 price band, 35% outside.
const (
	royaltyHigh = 0.70
	royaltyLow  = 0.35
)

// EstimateDailySales estimates daily sales from a rank. Ranks below 1
// estimate to 0; an unknown marketplace uses the USKindle model.
func EstimateDailySales(rank int, marketplace string) float64 {
	if rank < 1 {
		return 0
	}
	model, ok := Models[marketplace]
	if !ok {
		model = Models[USKindle]
	}
	daily := model.K * math.Pow(float64(rank), -model.A)
	return round2(daily)
}

// EstimateMonthlyRevenue estimates monthly author earnings from a rank
// and price, applying the royalty band for the price.
func EstimateMonthlyRevenue(rank int, price float64, marketplace string) float64 {
	if rank < 1 || price <= 0 {
		return 0
	}
	rate := royaltyLow
	if price >= 2.99 && price <= 9.99 {
		rate = royaltyHigh
	}
	monthly := EstimateDailySales(rank, marketplace) * 30 * price * rate
	return round2(monthly)
}

// VelocityLabel maps estimated daily sales to a display label.
func VelocityLabel(dailySales float64) string {
	switch {
	case dailySales >= 50:
		return "Excellent"
	case dailySales >= 10:
		return "Strong"
	case dailySales >= 3:
		return "Moderate"
	case dailySales >= 0.5:
		return "Low"
	default:
		return "Minimal"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
