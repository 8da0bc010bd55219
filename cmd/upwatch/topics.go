package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amishk599/upwatch/internal/store"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List all tracked topics",
	Long:  "Reads the store and prints a table of tracked topics with their subscribers and last seen listing.",
	RunE:  runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fail(logger, "failed to load config", err)
	}

	ctx := context.Background()
	subs, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fail(logger, "failed to open store", err)
	}
	defer subs.Close()

	topics, err := subs.AllTopics(ctx)
	if err != nil {
		return fail(logger, "failed to list topics", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-30s %-12s %-16s %s\n", "Topic", "Subscribers", "Updated", "Last seen")
	fmt.Fprintln(out, strings.Repeat("─", 90))

	subscribers := 0
	for _, t := range topics {
		lastSeen := t.LastSeen
		if lastSeen == "" {
			lastSeen = "(not checked yet)"
		}
		fmt.Fprintf(out, "%-30s %-12s %-16s %s\n",
			t.Name,
			humanize.Comma(int64(t.Subscribers)),
			humanize.Time(t.UpdatedAt),
			lastSeen,
		)
		subscribers += t.Subscribers
	}

	fmt.Fprintf(out, "\nTotal: %s %s, %s %s\n",
		humanize.Comma(int64(len(topics))), plural(len(topics), "topic"),
		humanize.Comma(int64(subscribers)), plural(subscribers, "subscription"),
	)
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
