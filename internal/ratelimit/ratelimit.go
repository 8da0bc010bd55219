package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

// HostRateLimiter enforces a minimum delay between requests to the same host.
// All workers of a polling pass share one instance, so parallel topic checks
// still reach the marketplace one request at a time per minDelay.
type HostRateLimiter struct {
	mu       sync.Mutex
	nextSlot map[string]time.Time // key: host
	minDelay time.Duration
}

// NewHostRateLimiter creates a rate limiter that spaces consecutive requests
// to the same host by at least minDelay. A zero delay disables waiting.
func NewHostRateLimiter(minDelay time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		nextSlot: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the caller's reserved slot for host arrives.
// Returns an error if the context is cancelled while waiting.
func (r *HostRateLimiter) Wait(ctx context.Context, host string) error {
	if r.minDelay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	slot, ok := r.nextSlot[host]
	if !ok || !slot.After(now) {
		// First request for this host, or the last one is long enough ago.
		slot = now
	}
	// Reserve the slot before releasing the lock so concurrent callers queue up
	// behind each other instead of all waking at the same instant.
	r.nextSlot[host] = slot.Add(r.minDelay)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-timer.C:
	}
	return nil
}

// Ensure RateLimitedFetcher implements model.PageFetcher.
var _ model.PageFetcher = (*RateLimitedFetcher)(nil)

// RateLimitedFetcher is a decorator that enforces host-level rate limiting
// before delegating to the wrapped PageFetcher.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *HostRateLimiter
}

// NewRateLimitedFetcher wraps a PageFetcher with host-level rate limiting.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *HostRateLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
	}
}

// Fetch waits for the rate limiter to allow a request to the URL's host, then
// delegates to the wrapped fetcher.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := f.limiter.Wait(ctx, host); err != nil {
		return "", err
	}
	return f.inner.Fetch(ctx, pageURL)
}
