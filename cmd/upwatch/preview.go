package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/upwatch/internal/config"
	"github.com/amishk599/upwatch/internal/model"
	"github.com/amishk599/upwatch/internal/poller"
	"github.com/amishk599/upwatch/internal/preview"
	"github.com/amishk599/upwatch/internal/store"
)

var previewCmd = &cobra.Command{
	Use:   "preview [topic]",
	Short: "Preview the newest listing of a topic (TUI)",
	Long: "Shows the topic picker (or uses the given topic), fetches the newest listing, " +
		"and shows it along with the notification subscribers would receive.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPreviewCmd,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreviewCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fail(logger, "failed to load config", err)
	}

	// Any log output once the TUI is up corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := buildFetcher(cfg, silent)
	if err != nil {
		return fail(logger, "failed to build fetcher", err)
	}

	site := newSite(cfg)
	fetchFn := func(topic string) preview.FetchFunc {
		return func(ctx context.Context) (model.Job, error) {
			return poller.TopJob(ctx, f, site, topic)
		}
	}

	if len(args) == 1 {
		topic := model.NormalizeTopic(args[0])
		if _, err := previewTopic(topic, cfg, fetchFn(topic)); err != nil {
			return fail(logger, "preview failed", err)
		}
		return nil
	}

	topics, err := listTopics(cfg)
	if err != nil {
		return fail(logger, "failed to list topics", err)
	}
	if len(topics) == 0 {
		fmt.Println("No tracked topics. Pass a topic: upwatch preview <topic>")
		return nil
	}

	for {
		choice, err := preview.RunTopicPicker(topics)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}
		topic := topics[choice].Name

		wantQuit, err := previewTopic(topic, cfg, fetchFn(topic))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}

func previewTopic(topic string, cfg *config.Config, fetchFn preview.FetchFunc) (bool, error) {
	// Two page fetches plus rate limiting and retries.
	timeout := 2*cfg.Fetch.Timeout + 2*cfg.Fetch.MinDelay
	if cfg.Fetch.MaxRetries > 0 {
		timeout *= time.Duration(cfg.Fetch.MaxRetries + 1)
	}

	job, err := preview.RunLoader(topic, timeout, fetchFn)
	if err != nil {
		return false, fmt.Errorf("fetching %q: %w", topic, err)
	}
	return preview.RunJobView(topic, job, timeout, fetchFn)
}

func listTopics(cfg *config.Config) ([]model.Topic, error) {
	ctx := context.Background()
	subs, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer subs.Close()
	return subs.AllTopics(ctx)
}
