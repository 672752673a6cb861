// Package ratelimit provides per-source token-bucket rate limiting.
//
// A Registry holds one independent bucket per named source. Every
// network-calling component acquires a permit before issuing a request,
// so the registry is the single point that serializes pressure on each
// upstream source.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bookscout/internal/types"
)

// Bucket is a token bucket: it accumulates permits over time up to a
// capacity and consumes one permit per allowed operation. Safe for
// concurrent callers.
type Bucket struct {
	rate     float64 // tokens per second
	capacity float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewBucket creates a bucket that refills at rate tokens per second and
// holds at most capacity tokens. The bucket starts full.
func NewBucket(rate float64, capacity int) *Bucket {
	if capacity < 1 {
		capacity = 1
	}
	return &Bucket{
		rate:       rate,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// refill adds tokens proportional to elapsed time. Caller holds mu.
func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	b.lastRefill = now
}

// Acquire blocks until a token is available and consumes it. When the
// bucket is empty it computes the exact deficit, sleeps that duration
// outside the lock, then refills once more and consumes.
func (b *Bucket) Acquire() {
	for {
		b.mu.Lock()
		b.refill()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return
		}
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		time.Sleep(wait)
	}
}

// TryAcquire consumes a token if one is immediately available.
func (b *Bucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Source names for the upstream endpoints the pipeline talks to.
// Every component acquires under one of these; the engine registers
// them all at startup.
const (
	SourceAutocomplete = "autocomplete"
	SourceSearch       = "search"
	SourceProduct      = "product"
	SourceDataForSEO   = "dataforseo"
)

// Registry maps named sources to their buckets. It is constructed once
// at process start and passed into every collector; sources must be
// registered before first use.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	logger  *slog.Logger
}

// NewRegistry creates an empty rate-limiter registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		buckets: make(map[string]*Bucket),
		logger:  logger.With("component", "ratelimit"),
	}
}

// Register creates the bucket for a source with a minimum interval
// between requests (tokens per second = 1/interval) and burst capacity.
// Registering the same source twice keeps the first bucket.
func (r *Registry) Register(source string, minInterval time.Duration, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[source]; ok {
		return
	}
	rate := 1.0 / minInterval.Seconds()
	r.buckets[source] = NewBucket(rate, capacity)
	r.logger.Debug("registered rate limiter",
		"source", source,
		"interval", minInterval,
		"capacity", capacity,
	)
}

// Acquire blocks until the named source's bucket yields a token. An
// unregistered source is a configuration error, not a silent no-op.
func (r *Registry) Acquire(source string) error {
	r.mu.RLock()
	b, ok := r.buckets[source]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrSourceNotRegistered, source)
	}
	b.Acquire()
	return nil
}
