package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/upwatch/internal/bot"
	"github.com/amishk599/upwatch/internal/config"
	"github.com/amishk599/upwatch/internal/model"
	"github.com/amishk599/upwatch/internal/poller"
	"github.com/amishk599/upwatch/internal/scheduler"
	"github.com/amishk599/upwatch/internal/session"
	"github.com/amishk599/upwatch/internal/store"
	"github.com/amishk599/upwatch/internal/telegram"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon and the Telegram bot",
	Long:  "Start the scheduler and the Telegram listener; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fail(logger, "failed to load config", err)
	}

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"workers", cfg.Workers,
		"fetch_mode", cfg.Fetch.Mode,
		"store", cfg.Store.Driver,
		"sessions", cfg.Session.Backend,
		"notifier", cfg.Notification.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newTelegramClient(cfg, logger)
	if err != nil {
		return fail(logger, "telegram is not configured", err)
	}

	subs, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fail(logger, "failed to open store", err)
	}
	defer subs.Close()

	pending, closePending, err := openSessions(ctx, cfg)
	if err != nil {
		return fail(logger, "failed to open session store", err)
	}
	defer closePending()

	f, err := buildFetcher(cfg, logger)
	if err != nil {
		return fail(logger, "failed to build fetcher", err)
	}

	n := setupNotifier(cfg, client, logger)
	p := poller.NewTopicPoller(f, subs, n, newSite(cfg), logger)
	sched := scheduler.NewScheduler(subs, p, cfg.PollingInterval, cfg.Workers, logger)
	handler := bot.NewHandler(subs, pending, client, logger)
	listener := telegram.NewListener(client, handler, cfg.Telegram.PollTimeout, logger)

	// Either component failing stops the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return listener.Run(gctx) })
	if err := g.Wait(); err != nil {
		return fail(logger, "daemon stopped", err)
	}

	logger.Info("goodbye")
	return nil
}

// openSessions returns the configured pending-action store and its closer.
func openSessions(ctx context.Context, cfg *config.Config) (model.PendingStore, func(), error) {
	if cfg.Session.Backend == "redis" {
		rs, err := session.NewRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return session.NewMemoryStore(cfg.Session.TTL), func() {}, nil
}
