package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/upwatch/internal/config"
	"github.com/amishk599/upwatch/internal/model"
	"github.com/amishk599/upwatch/internal/notifier"
	"github.com/amishk599/upwatch/internal/poller"
	"github.com/amishk599/upwatch/internal/scheduler"
	"github.com/amishk599/upwatch/internal/store"
)

// cliUser stands in for a chat subscriber during one-shot checks.
var cliUser = model.User{ID: 0, Username: "cli"}

var checkCmd = &cobra.Command{
	Use:   "check [topic...]",
	Short: "Check topics once, log the alerts, exit",
	Long: "One-shot pass: checks the given topics (or every tracked topic when none are given) " +
		"and logs the notification each would send. Nothing is persisted and no chat is messaged.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fail(logger, "failed to load config", err)
	}

	logger.Info("check mode: nothing will be persisted")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topics := normalizeTopics(args)
	if len(topics) == 0 {
		if topics, err = trackedTopics(ctx, cfg); err != nil {
			return fail(logger, "failed to list tracked topics", err)
		}
	}
	if len(topics) == 0 {
		return fail(logger, "nothing to check", errors.New("no topics given and none tracked"))
	}

	mem := store.NewMemoryStore()
	defer mem.Close()
	for _, t := range topics {
		if _, err := mem.AddSubscription(ctx, cliUser, t); err != nil {
			return fail(logger, "failed to seed topics", err)
		}
	}

	f, err := buildFetcher(cfg, logger)
	if err != nil {
		return fail(logger, "failed to build fetcher", err)
	}

	p := poller.NewTopicPoller(f, mem, notifier.NewLogNotifier(logger), newSite(cfg), logger)
	stats := scheduler.NewScheduler(mem, p, cfg.PollingInterval, cfg.Workers, logger).RunPass(ctx)

	logger.Info("check complete", "topics", stats.Topics, "errors", stats.Errors)
	if stats.Errors > 0 {
		return fmt.Errorf("%d of %d checks failed", stats.Errors, stats.Topics)
	}
	return nil
}

func normalizeTopics(args []string) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, a := range args {
		t := model.NormalizeTopic(a)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics
}

// trackedTopics reads the topic names from the configured store.
func trackedTopics(ctx context.Context, cfg *config.Config) ([]string, error) {
	subs, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer subs.Close()

	all, err := subs.AllTopics(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, t := range all {
		names = append(names, t.Name)
	}
	return names, nil
}
