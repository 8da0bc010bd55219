package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amishk599/upwatch/internal/extractor"
	"github.com/amishk599/upwatch/internal/formatter"
	"github.com/amishk599/upwatch/internal/model"
)

// Status is the result class of a single topic check.
type Status string

const (
	StatusSkipped      Status = "skipped"       // another check of the topic is in flight
	StatusFailed       Status = "failed"        // search page or store unavailable, nothing written
	StatusUnchanged    Status = "unchanged"     // top listing equals last seen
	StatusPrivate      Status = "private"       // new listing is private, last seen advanced
	StatusUnparseable  Status = "unparseable"   // detail page markup not recognised
	StatusDetailFailed Status = "detail_failed" // detail page could not be fetched
	StatusOrphaned     Status = "orphaned"      // no subscribers left, topic deleted
	StatusNotified     Status = "notified"
)

// Outcome describes what a topic check did.
type Outcome struct {
	Topic  string
	Status Status
	URL    string // top listing URL, empty when the search page failed
	Sent   int    // successful deliveries
}

// TopicPoller owns the full check chain for topics:
// fetch search → diff against last seen → fetch detail → format → fan out.
type TopicPoller struct {
	fetcher  model.PageFetcher
	store    model.SubscriptionStore
	notifier model.Notifier
	site     extractor.Site
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewTopicPoller creates a poller wired with all its dependencies.
func NewTopicPoller(
	fetcher model.PageFetcher,
	store model.SubscriptionStore,
	notifier model.Notifier,
	site extractor.Site,
	logger *slog.Logger,
) *TopicPoller {
	return &TopicPoller{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		site:     site,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Check runs one check of topic. At most one check per topic runs at a time;
// a concurrent call returns StatusSkipped without touching the network.
func (p *TopicPoller) Check(ctx context.Context, topic string) (Outcome, error) {
	out := Outcome{Topic: topic}
	if !p.acquire(topic) {
		out.Status = StatusSkipped
		p.logger.Debug("check already in flight", "topic", topic)
		return out, nil
	}
	defer p.release(topic)

	top, err := p.topListing(ctx, topic)
	if err != nil {
		out.Status = StatusFailed
		return out, fmt.Errorf("checking %s: %w", topic, err)
	}
	out.URL = top

	lastSeen, err := p.store.LastSeen(ctx, topic)
	if err != nil {
		out.Status = StatusFailed
		return out, fmt.Errorf("checking %s: reading last seen: %w", topic, err)
	}
	if lastSeen == top {
		out.Status = StatusUnchanged
		p.logger.Debug("no new listing", "topic", topic, "url", top)
		return out, nil
	}

	// Commit before the detail fetch so a broken or private listing is not
	// retried on every tick.
	if err := p.store.SetLastSeen(ctx, topic, top); err != nil {
		out.Status = StatusFailed
		return out, fmt.Errorf("checking %s: saving last seen: %w", topic, err)
	}

	job, err := p.job(ctx, top)
	switch {
	case errors.Is(err, model.ErrPrivateJob):
		out.Status = StatusPrivate
		p.logger.Info("new listing is private", "topic", topic, "url", top)
		return out, nil
	case isExtractionError(err):
		out.Status = StatusUnparseable
		p.logger.Warn("could not parse listing", "topic", topic, "url", top, "error", err)
		return out, nil
	case err != nil:
		out.Status = StatusDetailFailed
		return out, fmt.Errorf("checking %s: fetching listing: %w", topic, err)
	}

	text := formatter.FormatNotification(job, topic)

	subscribers, err := p.store.Subscribers(ctx, topic)
	if err != nil {
		out.Status = StatusFailed
		return out, fmt.Errorf("checking %s: reading subscribers: %w", topic, err)
	}
	if len(subscribers) == 0 {
		out.Status = StatusOrphaned
		if _, err := p.store.DeleteTopicIfOrphaned(ctx, topic); err != nil {
			return out, fmt.Errorf("checking %s: deleting orphaned topic: %w", topic, err)
		}
		p.logger.Info("deleted orphaned topic", "topic", topic)
		return out, nil
	}

	out.Status = StatusNotified
	var lastErr error
	for _, chatID := range subscribers {
		if err := p.notifier.Notify(ctx, chatID, text); err != nil {
			lastErr = err
			p.logger.Error("notification failed", "topic", topic, "chat_id", chatID, "error", err)
			continue
		}
		out.Sent++
	}

	p.logger.Info("checked topic",
		"topic", topic,
		"url", top,
		"subscribers", len(subscribers),
		"sent", out.Sent,
	)

	if out.Sent == 0 {
		return out, fmt.Errorf("checking %s: all %d notifications failed: %w", topic, len(subscribers), lastErr)
	}
	return out, nil
}

func (p *TopicPoller) topListing(ctx context.Context, topic string) (string, error) {
	page, err := p.fetcher.Fetch(ctx, p.site.SearchURL(topic))
	if err != nil {
		return "", fmt.Errorf("fetching search page: %w", err)
	}
	return extractor.TopListingURL(page, p.site)
}

func (p *TopicPoller) job(ctx context.Context, jobURL string) (model.Job, error) {
	page, err := p.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return model.Job{}, err
	}
	return extractor.ParseJobDetail(page, jobURL)
}

func (p *TopicPoller) acquire(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[topic]; busy {
		return false
	}
	p.inFlight[topic] = struct{}{}
	return true
}

func (p *TopicPoller) release(topic string) {
	p.mu.Lock()
	delete(p.inFlight, topic)
	p.mu.Unlock()
}

func isExtractionError(err error) bool {
	var extErr *extractor.ExtractionError
	return errors.As(err, &extErr)
}

// TopJob fetches the current top listing for topic without consulting any
// store. It backs the preview and check commands.
func TopJob(ctx context.Context, fetcher model.PageFetcher, site extractor.Site, topic string) (model.Job, error) {
	page, err := fetcher.Fetch(ctx, site.SearchURL(topic))
	if err != nil {
		return model.Job{}, fmt.Errorf("fetching search page: %w", err)
	}
	top, err := extractor.TopListingURL(page, site)
	if err != nil {
		return model.Job{}, err
	}
	page, err = fetcher.Fetch(ctx, top)
	if err != nil {
		return model.Job{}, fmt.Errorf("fetching listing: %w", err)
	}
	return extractor.ParseJobDetail(page, top)
}
