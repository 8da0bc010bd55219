package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/amishk599/upwatch/internal/model"
)

// Ensure BrowserFetcher implements model.PageFetcher.
var _ model.PageFetcher = (*BrowserFetcher)(nil)

// BrowserFetcher renders pages in headless Chrome. It gets past challenges that
// require JavaScript, at the cost of a Chrome process per fetch.
// Requires Chrome/Chromium to be installed on the host.
type BrowserFetcher struct {
	timeout time.Duration
	settle  time.Duration // wait after the body is ready for client-side rendering
	logger  *slog.Logger
}

// NewBrowserFetcher returns a headless-browser fetcher.
func NewBrowserFetcher(timeout time.Duration, logger *slog.Logger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserFetcher{
		timeout: timeout,
		settle:  3 * time.Second,
		logger:  logger,
	}
}

// Fetch navigates to pageURL and returns the rendered outer HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgents[0]),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser fetch %s: %w", pageURL, err)
	}

	f.logger.Debug("browser rendered page", "url", pageURL, "bytes", len(html))

	if IsChallengePage(html) {
		return "", fmt.Errorf("browser fetch %s: %w", pageURL, model.ErrChallenge)
	}
	return html, nil
}
