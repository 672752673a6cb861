package bsr

import (
	"math"
	"testing"
)

func TestEstimateDailySales(t *testing.T) {
	// BSR 1 collapses to the model's k coefficient.
	if got := EstimateDailySales(1, USKindle); got != 150000 {
		t.Errorf("rank 1 = %v, want 150000", got)
	}

	// The power law is monotonically decreasing in rank.
	prev := math.Inf(1)
	for _, rank := range []int{10, 100, 1000, 10000, 100000} {
		got := EstimateDailySales(rank, USKindle)
		if got >= prev {
			t.Errorf("rank %d sales %v not below %v", rank, got, prev)
		}
		prev = got
	}

	if got := EstimateDailySales(0, USKindle); got != 0 {
		t.Errorf("rank 0 = %v, want 0", got)
	}
	if got := EstimateDailySales(-5, USKindle); got != 0 {
		t.Errorf("negative rank = %v, want 0", got)
	}
}

func TestEstimateDailySalesUnknownMarketplace(t *testing.T) {
	if got, want := EstimateDailySales(5000, "de_kindle"), EstimateDailySales(5000, USKindle); got != want {
		t.Errorf("unknown marketplace = %v, want USKindle fallback %v", got, want)
	}
}

func TestEstimateMonthlyRevenueRoyaltyBands(t *testing.T) {
	rank := 10000

	// $4.99 sits in the 70% band; $1.99 and $12.99 fall to 35%.
	daily := EstimateDailySales(rank, USKindle)
	want := math.Round(daily*30*4.99*0.70*100) / 100
	if got := EstimateMonthlyRevenue(rank, 4.99, USKindle); got != want {
		t.Errorf("in-band revenue = %v, want %v", got, want)
	}

	low := EstimateMonthlyRevenue(rank, 1.99, USKindle)
	high := EstimateMonthlyRevenue(rank, 12.99, USKindle)
	wantLow := math.Round(daily*30*1.99*0.35*100) / 100
	wantHigh := math.Round(daily*30*12.99*0.35*100) / 100
	if low != wantLow || high != wantHigh {
		t.Errorf("out-of-band revenue = %v/%v, want %v/%v", low, high, wantLow, wantHigh)
	}

	if got := EstimateMonthlyRevenue(rank, 0, USKindle); got != 0 {
		t.Errorf("zero price revenue = %v, want 0", got)
	}
	if got := EstimateMonthlyRevenue(0, 4.99, USKindle); got != 0 {
		t.Errorf("zero rank revenue = %v, want 0", got)
	}
}

func TestVelocityLabel(t *testing.T) {
	cases := []struct {
		daily float64
		want  string
	}{
		{75, "Excellent"},
		{50, "Excellent"},
		{10, "Strong"},
		{3, "Moderate"},
		{0.5, "Low"},
		{0.1, "Minimal"},
	}
	for _, tc := range cases {
		if got := VelocityLabel(tc.daily); got != tc.want {
			t.Errorf("VelocityLabel(%v) = %q, want %q", tc.daily, got, tc.want)
		}
	}
}
