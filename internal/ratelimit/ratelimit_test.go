package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWait_SameHost_EnforcesMinDelay(t *testing.T) {
	limiter := NewHostRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "www.upwork.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "www.upwork.com"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "www.upwork.com"); err != nil {
		t.Fatalf("upwork wait: %v", err)
	}

	// Immediately call for another host; should not block.
	start := time.Now()
	if err := limiter.Wait(ctx, "api.telegram.org"); err != nil {
		t.Fatalf("telegram wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected near-instant wait for a different host, got %v", elapsed)
	}
}

func TestWait_ConcurrentCallersAreSpaced(t *testing.T) {
	limiter := NewHostRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx, "www.upwork.com"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// Three callers: slots at 0, 50ms, 100ms.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected >= 90ms for three spaced callers, got %v", elapsed)
	}
}

func TestWait_ZeroDelayNeverBlocks(t *testing.T) {
	limiter := NewHostRateLimiter(0)
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background(), "www.upwork.com"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("zero delay should not block, took %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostRateLimiter(5 * time.Second) // long delay

	// First call to seed the slot.
	if err := limiter.Wait(context.Background(), "www.upwork.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	if err := limiter.Wait(ctx, "www.upwork.com"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for RateLimitedFetcher test ---

type recordingFetcher struct {
	urls []string
}

func (f *recordingFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return "<html></html>", nil
}

func TestRateLimitedFetcher_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewHostRateLimiter(100 * time.Millisecond)
	inner := &recordingFetcher{}
	fetcher := NewRateLimitedFetcher(inner, limiter)
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, "https://www.upwork.com/nx/search/jobs/?q=go"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// Same host, different path; should wait for the limiter.
	start := time.Now()
	if _, err := fetcher.Fetch(ctx, "https://www.upwork.com/jobs/~01abc"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if len(inner.urls) != 2 {
		t.Fatalf("inner fetcher calls = %d, want 2", len(inner.urls))
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}
