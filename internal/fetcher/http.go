// Package fetcher retrieves live marketplace pages while presenting as a
// regular desktop browser.
package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

// DefaultTimeout bounds every page request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a page is read into memory.
const maxBodyBytes = 8 << 20

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
}

// Ensure HTTPFetcher implements model.PageFetcher.
var _ model.PageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches pages over plain HTTP with browser-like headers and a
// cookie jar, so challenge cookies set on one request are replayed on the next.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher with its own cookie jar. proxyURL may be empty.
func NewHTTPFetcher(timeout time.Duration, proxyURL string) (*HTTPFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = true
	transport.MaxIdleConnsPerHost = 10
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: transport,
		},
	}, nil
}

// NewHTTPFetcherWithClient wraps an existing client (tests, custom transports).
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch returns the page body. Non-200 statuses become *model.HTTPError and
// challenge interstitials wrap model.ErrChallenge.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	req.Header = browserHeaders()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("fetch %s: reading body: %w", pageURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		if (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable) &&
			(isChallengeResponse(resp.Header) || isBlockedPage(body)) {
			httpErr.Err = model.ErrChallenge
		}
		return "", fmt.Errorf("fetch %s: %w", pageURL, httpErr)
	}

	if IsChallengePage(body) {
		return "", fmt.Errorf("fetch %s: %w", pageURL, model.ErrChallenge)
	}

	return body, nil
}

// browserHeaders returns a randomized header set that mimics a desktop browser
// navigating to a page.
func browserHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	// Only gzip is decoded by readBody.
	h.Set("Accept-Encoding", "gzip")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Viewport-Width", strconv.Itoa(1280+rand.Intn(400)))
	return h
}

// readBody reads the response body, decoding gzip when the server used it.
func readBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
