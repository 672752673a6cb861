// Package fetcher is the transport layer: it performs the actual HTTP
// calls with retry, backoff, and user-agent rotation. Rate limiting is
// not its job; callers acquire a permit before calling Fetch.
package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Response is the status/body pair returned by a fetch. Non-2xx
// statuses are data, not errors: callers inspect StatusCode.
type Response struct {
	StatusCode int
	Body       []byte

	// retryAfter carries the parsed Retry-After of a 429 so the
	// retry loop can honor it between attempts.
	retryAfter time.Duration
}

// Fetcher is the interface for transport implementations.
type Fetcher interface {
	// Fetch retrieves the URL with the given query parameters and
	// extra headers. It retries transient upstream statuses with
	// backoff internally and errors only on irrecoverable network
	// failure.
	Fetch(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}
