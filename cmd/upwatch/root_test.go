package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/amishk599/upwatch/internal/config"
	"github.com/amishk599/upwatch/internal/notifier"
	"github.com/amishk599/upwatch/internal/ratelimit"
	"github.com/amishk599/upwatch/internal/retry"
	"github.com/amishk599/upwatch/internal/telegram"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("UPWATCH_CONFIG", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.PollingInterval != config.DefaultPollingInterval {
		t.Errorf("PollingInterval = %v, want default", cfg.PollingInterval)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	t.Setenv("UPWATCH_CONFIG", "")
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for an explicit missing config")
	}
}

func TestLoadConfig_EnvPathAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("UPWATCH_WORKERS_FROM_DOTENV", "")
	os.Unsetenv("UPWATCH_WORKERS_FROM_DOTENV")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("UPWATCH_WORKERS_FROM_DOTENV=7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("workers: ${UPWATCH_WORKERS_FROM_DOTENV}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UPWATCH_CONFIG", path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7 from .env", cfg.Workers)
	}
}

func TestBuildFetcher_Chain(t *testing.T) {
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	f, err := buildFetcher(cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildFetcher: %v", err)
	}
	if _, ok := f.(*ratelimit.RateLimitedFetcher); !ok {
		t.Errorf("without retries the outermost fetcher = %T, want *ratelimit.RateLimitedFetcher", f)
	}

	cfg.Fetch.MaxRetries = 2
	f, err = buildFetcher(cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildFetcher: %v", err)
	}
	if _, ok := f.(*retry.RetryFetcher); !ok {
		t.Errorf("with retries the outermost fetcher = %T, want *retry.RetryFetcher", f)
	}
}

func TestSetupNotifier(t *testing.T) {
	cfg, err := config.Parse([]byte("notification:\n  type: log\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := setupNotifier(cfg, nil, discardLogger()).(*notifier.LogNotifier); !ok {
		t.Error("log type should yield a LogNotifier")
	}

	cfg.Notification.Type = "telegram"
	client := telegram.NewClient("", "123:abc", nil, discardLogger())
	if _, ok := setupNotifier(cfg, client, discardLogger()).(*telegram.Notifier); !ok {
		t.Error("telegram type with a client should yield a telegram Notifier")
	}
	if _, ok := setupNotifier(cfg, nil, discardLogger()).(*notifier.LogNotifier); !ok {
		t.Error("telegram type without a client should fall back to logging")
	}
}

func TestNormalizeTopics(t *testing.T) {
	got := normalizeTopics([]string{"  Go  Lang ", "go lang", "", "Rust"})
	want := []string{"go lang", "rust"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeTopics = %v, want %v", got, want)
	}
}
