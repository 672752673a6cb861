package product

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"bookscout/internal/config"
	"bookscout/internal/fetcher"
	"bookscout/internal/ratelimit"
	"bookscout/internal/types"
)

const detailPage = `<html><body>
<span id="productTitle"> The Lighthouse Keeper's Daughter </span>
<div id="bylineInfo"><span class="author"><a href="#">Jane Example</a></span></div>
<span id="acrPopover" title="4.6 out of 5 stars"></span>
<span id="acrCustomerReviewText">1,234 ratings</span>
<div id="tmmSwatches">
  <div class="swatchElement">Kindle Edition $4.99</div>
  <div class="swatchElement">Paperback $12.99</div>
</div>
<div id="detailBullets_feature_div"><ul>
  <li><span>Print length : </span><span>302 pages</span></li>
  <li><span>Best Sellers Rank: </span>#12,345 in Kindle Store (See Top 100 in Kindle Store) #67 in Cozy Mystery #152 in Women Sleuths</li>
</ul></div>
</body></html>`

func TestParseProductPage(t *testing.T) {
	d, err := parseProductPage([]byte(detailPage), "b0test1234")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if d.ASIN != "B0TEST1234" {
		t.Errorf("asin = %q", d.ASIN)
	}
	if d.Title != "The Lighthouse Keeper's Daughter" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Author != "Jane Example" {
		t.Errorf("author = %q", d.Author)
	}
	if d.AvgRating == nil || *d.AvgRating != 4.6 {
		t.Errorf("rating = %v, want 4.6", d.AvgRating)
	}
	if d.ReviewCount == nil || *d.ReviewCount != 1234 {
		t.Errorf("reviews = %v, want 1234", d.ReviewCount)
	}
	if d.PriceKindle == nil || *d.PriceKindle != 4.99 {
		t.Errorf("kindle price = %v, want 4.99", d.PriceKindle)
	}
	if d.PricePaperback == nil || *d.PricePaperback != 12.99 {
		t.Errorf("paperback price = %v, want 12.99", d.PricePaperback)
	}
	if d.PageCount == nil || *d.PageCount != 302 {
		t.Errorf("pages = %v, want 302", d.PageCount)
	}
	if d.BSROverall == nil || *d.BSROverall != 12345 {
		t.Errorf("bsr = %v, want 12345", d.BSROverall)
	}
	if d.BSRCategories["Cozy Mystery"] != 67 || d.BSRCategories["Women Sleuths"] != 152 {
		t.Errorf("categories = %v", d.BSRCategories)
	}
}

func TestParseProductPageSparse(t *testing.T) {
	d, err := parseProductPage([]byte(`<html><body><span id="productTitle">Bare Page</span></body></html>`), "B0BARE0000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Title != "Bare Page" {
		t.Errorf("title = %q", d.Title)
	}
	if d.BSROverall != nil || d.PriceKindle != nil || d.PageCount != nil {
		t.Errorf("missing signals must stay nil: %+v", d)
	}
}

// cannedFetcher serves one fixed response.
type cannedFetcher struct {
	status int
	body   string
}

func (f *cannedFetcher) Fetch(context.Context, string, url.Values, http.Header) (*fetcher.Response, error) {
	return &fetcher.Response{StatusCode: f.status, Body: []byte(f.body)}, nil
}
func (f *cannedFetcher) Close() error { return nil }
func (f *cannedFetcher) Type() string { return "stub" }

func newTestScraper(t *testing.T, f fetcher.Fetcher) *Scraper {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits := ratelimit.NewRegistry(logger)
	limits.Register(ratelimit.SourceProduct, time.Microsecond, 1)
	return New(f, limits, config.DefaultConfig(), logger)
}

func TestScrapeChallengePage(t *testing.T) {
	s := newTestScraper(t, &cannedFetcher{status: http.StatusOK, body: "<html>Robot Check</html>"})
	_, err := s.Scrape(context.Background(), "B0TEST1234")
	if !errors.Is(err, types.ErrChallenge) {
		t.Errorf("err = %v, want ErrChallenge", err)
	}
}

func TestScrapeBadStatus(t *testing.T) {
	s := newTestScraper(t, &cannedFetcher{status: http.StatusNotFound, body: "gone"})
	_, err := s.Scrape(context.Background(), "B0TEST1234")
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want FetchError with 404", err)
	}
}

func TestScrapeOK(t *testing.T) {
	s := newTestScraper(t, &cannedFetcher{status: http.StatusOK, body: detailPage})
	d, err := s.Scrape(context.Background(), "B0TEST1234")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if d.Title == "" || d.BSROverall == nil {
		t.Errorf("details = %+v", d)
	}
}
