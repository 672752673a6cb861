package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	// ErrSourceNotRegistered signals an Acquire on a rate-limiter
	// source that was never registered: programmer misuse, not a
	// data condition.
	ErrSourceNotRegistered = errors.New("rate limiter source not registered")

	// ErrChallenge signals an anti-automation challenge page on a
	// path that cannot usefully retry without a larger intervention.
	ErrChallenge = errors.New("anti-automation challenge served")

	// ErrNotConfigured signals a paid adapter used in a mode that
	// requires credentials which are not set.
	ErrNotConfigured = errors.New("adapter credentials not configured")

	ErrBookNotFound    = errors.New("book not found")
	ErrKeywordNotFound = errors.New("keyword not found")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// StoreError wraps errors from the persistence layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
