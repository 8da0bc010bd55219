package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/upwatch/internal/notifier"
	"github.com/amishk599/upwatch/internal/telegram"
)

var testChatID int64

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample job alert to --chat using the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().Int64Var(&testChatID, "chat", 0, "chat id to send the test message to")
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fail(logger, "failed to load config", err)
	}

	var client *telegram.Client
	if cfg.Notification.Type == "telegram" {
		if testChatID == 0 {
			return fail(logger, "missing recipient", errors.New("--chat is required for the telegram notifier"))
		}
		if client, err = newTelegramClient(cfg, logger); err != nil {
			return fail(logger, "telegram is not configured", err)
		}
	}
	n := setupNotifier(cfg, client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := notifier.SendTestMessage(ctx, n, testChatID); err != nil {
		return fail(logger, "test notification failed", err)
	}
	logger.Info("test notification sent successfully", "chat_id", testChatID)
	return nil
}
