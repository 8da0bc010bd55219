package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockFetcher calls a function on each invocation, tracking call count.
type mockFetcher struct {
	calls int
	fn    func(attempt int) (string, error)
}

func (m *mockFetcher) Fetch(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.fn(m.calls)
}

const pageURL = "https://www.upwork.com/nx/search/jobs/?q=go"

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (string, error) {
		return "<html>ok</html>", nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.Fetch(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<html>ok</html>" {
		t.Fatalf("unexpected page: %q", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (string, error) {
		if attempt == 1 {
			return "", &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return "page", nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := rf.Fetch(context.Background(), pageURL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rf.Fetch(context.Background(), pageURL)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryChallenge(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 503, Err: model.ErrChallenge}
	}}

	rf := NewRetryFetcher(mock, 3, 10*time.Millisecond, discardLogger())
	_, err := rf.Fetch(context.Background(), pageURL)
	if !errors.Is(err, model.ErrChallenge) {
		t.Fatalf("expected ErrChallenge, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (challenge is not retried), got %d", mock.calls)
	}
}

func TestRetry_RetriesNetworkErrors(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (string, error) {
		if attempt < 3 {
			return "", fmt.Errorf("dial tcp: connection reset")
		}
		return "page", nil
	}}

	rf := NewRetryFetcher(mock, 2, time.Millisecond, discardLogger())
	if _, err := rf.Fetch(context.Background(), pageURL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := rf.Fetch(context.Background(), pageURL); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rf := NewRetryFetcher(mock, 2, time.Second, discardLogger())
	_, err := rf.Fetch(ctx, pageURL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestBackoffDelay_PrefersRetryAfter(t *testing.T) {
	rf := NewRetryFetcher(nil, 2, time.Second, discardLogger())
	err := &model.HTTPError{StatusCode: 429, RetryAfter: 42 * time.Second}
	if got := rf.backoffDelay(1, err); got != 42*time.Second {
		t.Errorf("backoffDelay = %v, want 42s", got)
	}
}
