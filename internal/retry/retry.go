package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

// RetryFetcher is a decorator that retries transient page-fetch failures with
// exponential backoff and jitter before giving up for the current tick.
type RetryFetcher struct {
	inner      model.PageFetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps a PageFetcher with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryFetcher(inner model.PageFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Fetch attempts to fetch the page, retrying on transient errors.
func (f *RetryFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := f.inner.Fetch(ctx, url)
	if err == nil {
		return page, nil
	}

	if !isRetryable(err) {
		return "", err
	}

	lastErr := err
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		delay := f.backoffDelay(attempt, lastErr)

		f.logger.Warn("retrying after transient error",
			"url", url,
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		page, err = f.inner.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}

		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (f *RetryFetcher) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// An immediate retry only hits the same interstitial again.
	if errors.Is(err, model.ErrChallenge) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 500 {
			return true
		}
		// Other 4xx are not retryable.
		return false
	}

	// Network-level failures are retryable.
	return true
}
