package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrChallenge is returned when the marketplace answers with a bot-detection
// interstitial instead of the requested page.
var ErrChallenge = errors.New("bot challenge page")

// ErrPrivateJob means the detail page is a "private listing" notice. It is an
// expected outcome, not a failure.
var ErrPrivateJob = errors.New("job is private")

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ExtractionError reports that expected markup was missing from a page.
type ExtractionError struct {
	Page   string // "search" or "detail"
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s page: %s", e.Page, e.Reason)
}
