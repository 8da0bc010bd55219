package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/upwatch/internal/config"
	"github.com/amishk599/upwatch/internal/extractor"
	"github.com/amishk599/upwatch/internal/fetcher"
	"github.com/amishk599/upwatch/internal/model"
	"github.com/amishk599/upwatch/internal/notifier"
	"github.com/amishk599/upwatch/internal/ratelimit"
	"github.com/amishk599/upwatch/internal/retry"
	"github.com/amishk599/upwatch/internal/telegram"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "upwatch",
	Short: "Upwork topic watcher with a Telegram bot",
	Long:  "upwatch checks Upwork searches for the topics your chats follow and sends each new top listing to every subscriber.",
	// Default to `start` so that `upwatch` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: UPWATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > UPWATCH_CONFIG env var > "./config.yaml".
// A missing default config file yields the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("UPWATCH_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Parse(nil)
	}
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// buildFetcher assembles the page fetcher chain: transport, then a shared
// per-host rate limiter, then optional retries.
func buildFetcher(cfg *config.Config, logger *slog.Logger) (model.PageFetcher, error) {
	var f model.PageFetcher
	switch cfg.Fetch.Mode {
	case "browser":
		logger.Info("using headless browser fetcher")
		f = fetcher.NewBrowserFetcher(cfg.Fetch.Timeout, logger)
	default:
		hf, err := fetcher.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.ProxyURL)
		if err != nil {
			return nil, err
		}
		f = hf
	}

	f = ratelimit.NewRateLimitedFetcher(f, ratelimit.NewHostRateLimiter(cfg.Fetch.MinDelay))
	if cfg.Fetch.MaxRetries > 0 {
		f = retry.NewRetryFetcher(f, cfg.Fetch.MaxRetries, cfg.Fetch.RetryBaseDelay, logger)
	}
	return f, nil
}

func newSite(cfg *config.Config) extractor.Site {
	return extractor.NewSite(cfg.Marketplace.BaseURL)
}

func newTelegramClient(cfg *config.Config, logger *slog.Logger) (*telegram.Client, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	// No client timeout: long polls are bounded per call.
	return telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken, &http.Client{}, logger), nil
}

// setupNotifier picks the alert channel. client may be nil for the log notifier.
func setupNotifier(cfg *config.Config, client *telegram.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "telegram":
		if client != nil {
			logger.Info("using telegram notifier")
			return telegram.NewNotifier(client, logger)
		}
		logger.Warn("telegram notifier requested without a bot client, logging alerts instead")
	}
	return notifier.NewLogNotifier(logger)
}

// fail logs a setup error and returns it so main exits non-zero.
func fail(logger *slog.Logger, msg string, err error) error {
	logger.Error(msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
