package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"bookscout/internal/config"
	"bookscout/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod
// with stealth patches. It is the escape hatch for pages that serve
// challenges to plain HTTP clients; the pipeline issues requests
// sequentially, so a single page at a time is enough.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.FetcherConfig
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.Fetcher.ProxyURL != "" {
		l = l.Proxy(cfg.Fetcher.ProxyURL)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		cfg:     &cfg.Fetcher,
		logger:  logger.With("component", "browser_fetcher"),
	}
	bf.logger.Info("browser fetcher ready")
	return bf, nil
}

// Fetch navigates to the URL and returns the rendered HTML. The status
// code is reported as 200 whenever navigation succeeds; challenge pages
// are still detected downstream by their body markers.
func (bf *BrowserFetcher) Fetch(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	page, err := stealth.Page(bf.browser)
	if err != nil {
		return nil, &types.FetchError{URL: target, Err: fmt.Errorf("stealth page: %w", err), Retryable: true}
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.Timeout(bf.cfg.RequestTimeout).Navigate(target); err != nil {
		return nil, &types.FetchError{URL: target, Err: err, Retryable: true}
	}
	if err := page.Timeout(bf.cfg.RequestTimeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", target, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: target, Err: err, Retryable: true}
	}

	bf.logger.Debug("browser fetch complete", "url", target, "size", len(html))
	return &Response{StatusCode: http.StatusOK, Body: []byte(html)}, nil
}

// Close shuts the browser down.
func (bf *BrowserFetcher) Close() error {
	return bf.browser.Close()
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string { return "browser" }
