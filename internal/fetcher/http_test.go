package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"bookscout/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxRetries = 2
	cfg.Fetcher.RetryBackoff = 5 * time.Millisecond
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("prefix") != "romance" {
			t.Errorf("missing query param, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	params := url.Values{}
	params.Set("prefix", "romance")
	resp, err := f.Fetch(context.Background(), srv.URL, params, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestFetchRetriesOn503(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	resp, err := f.Fetch(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected recovery to 200, got %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchExhaustedRetriesReturnsLastResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	resp, err := f.Fetch(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("exhausted retries must not error, got %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected last 503 response, got %d", resp.StatusCode)
	}
}

func TestFetchNonRetryableStatusPassesThrough(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	resp, err := f.Fetch(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("404 must not be retried, got %d attempts", got)
	}
}

func TestUserAgentRotation(t *testing.T) {
	seen := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("User-Agent")] = true
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Fetcher.UserAgents = []string{"ua-one", "ua-two"}
	f, err := NewHTTPFetcher(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for i := 0; i < 4; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 2 {
		t.Errorf("expected both user agents to appear, got %v", seen)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("expected 7s, got %v", got)
	}
	if got := parseRetryAfter("900"); got != 120*time.Second {
		t.Errorf("expected 2m cap, got %v", got)
	}
	if got := parseRetryAfter(""); got != 5*time.Second {
		t.Errorf("expected 5s default, got %v", got)
	}
}
