package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/upwatch/internal/model"
	"github.com/amishk599/upwatch/internal/poller"
)

// TopicChecker runs one check of a topic. *poller.TopicPoller implements it.
type TopicChecker interface {
	Check(ctx context.Context, topic string) (poller.Outcome, error)
}

// PassStats summarises one polling pass.
type PassStats struct {
	ID       string
	Topics   int
	Orphaned int // deleted at pass start
	Errors   int
	ByStatus map[poller.Status]int
}

// Scheduler owns the main loop: it runs a pass over every tracked topic on a
// fixed interval, checking up to workers topics in parallel.
type Scheduler struct {
	store    model.SubscriptionStore
	checker  TopicChecker
	interval time.Duration
	workers  int
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that polls all topics at the given interval.
func NewScheduler(store model.SubscriptionStore, checker TopicChecker, interval time.Duration, workers int, logger *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		store:    store,
		checker:  checker,
		interval: interval,
		workers:  workers,
		logger:   logger,
	}
}

// Run starts the polling loop. It runs one immediate pass, then one pass per
// interval; a tick that arrives while a pass is still running is skipped.
// It returns nil when ctx is cancelled, after the running pass has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"workers", s.workers,
	)

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.RunPass(ctx) }); err != nil {
		return fmt.Errorf("scheduling polling pass: %w", err)
	}

	// Run one immediate pass.
	s.RunPass(ctx)

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

// RunPass checks every tracked topic once. A failing topic never aborts the pass.
func (s *Scheduler) RunPass(ctx context.Context) PassStats {
	stats := PassStats{
		ID:       uuid.NewString(),
		ByStatus: make(map[poller.Status]int),
	}
	logger := s.logger.With("pass_id", stats.ID)
	start := time.Now()

	topics, err := s.store.AllTopics(ctx)
	if err != nil {
		logger.Error("listing topics failed", "error", err)
		stats.Errors++
		return stats
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, t := range topics {
		if ctx.Err() != nil {
			break
		}
		if t.Subscribers == 0 {
			deleted, err := s.store.DeleteTopicIfOrphaned(ctx, t.Name)
			if err != nil {
				logger.Error("deleting orphaned topic failed", "topic", t.Name, "error", err)
			}
			if deleted {
				stats.Orphaned++
				logger.Info("deleted orphaned topic", "topic", t.Name)
			}
			continue
		}

		stats.Topics++
		topic := t.Name
		g.Go(func() error {
			out, err := s.checker.Check(ctx, topic)
			mu.Lock()
			defer mu.Unlock()
			stats.ByStatus[out.Status]++
			if err != nil {
				stats.Errors++
				logger.Error("check failed",
					"topic", topic,
					"status", out.Status,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("polling pass complete",
		"topics", stats.Topics,
		"notified", stats.ByStatus[poller.StatusNotified],
		"errors", stats.Errors,
		"orphaned", stats.Orphaned,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats
}

// cronLogger bridges cron's logger into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
