package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("UPWATCH_TEST_TOKEN", "123:secret")
	path := writeConfig(t, `
polling_interval: 2m
workers: 8
marketplace:
  base_url: https://www.upwork.com/
fetch:
  mode: browser
  timeout: 45s
  min_delay: 3s
  max_retries: 2
  retry_base_delay: 1s
store:
  driver: postgres
  dsn: postgres://upwatch:pw@localhost:5432/upwatch
session:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 30m
telegram:
  bot_token: ${UPWATCH_TEST_TOKEN}
  poll_timeout: 20s
notification:
  type: log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollingInterval != 2*time.Minute {
		t.Errorf("PollingInterval = %v, want 2m", cfg.PollingInterval)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Marketplace.BaseURL != "https://www.upwork.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Marketplace.BaseURL)
	}
	if cfg.Fetch.Mode != "browser" || cfg.Fetch.Timeout != 45*time.Second || cfg.Fetch.MinDelay != 3*time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.MaxRetries != 2 || cfg.Fetch.RetryBaseDelay != time.Second {
		t.Errorf("Fetch retries = %+v", cfg.Fetch)
	}
	if cfg.Store.Driver != "postgres" || !strings.HasPrefix(cfg.Store.DSN, "postgres://") {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.TTL != 30*time.Minute {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Telegram.BotToken != "123:secret" {
		t.Errorf("BotToken = %q, want env-expanded value", cfg.Telegram.BotToken)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q", cfg.Notification.Type)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv(tokenEnv, "")
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.PollingInterval != DefaultPollingInterval {
		t.Errorf("PollingInterval = %v", cfg.PollingInterval)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.Marketplace.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.Marketplace.BaseURL)
	}
	if cfg.Fetch.Mode != "http" || cfg.Fetch.Timeout != DefaultFetchTimeout || cfg.Fetch.MinDelay != DefaultMinDelay || cfg.Fetch.MaxRetries != 0 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != DefaultSQLiteDSN {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Session.Backend != "memory" || cfg.Session.TTL != DefaultSessionTTL {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Telegram.APIURL != DefaultTelegramAPIURL || cfg.Telegram.PollTimeout != DefaultPollTimeout {
		t.Errorf("Telegram = %+v", cfg.Telegram)
	}
	if cfg.Notification.Type != "telegram" {
		t.Errorf("Notification.Type = %q", cfg.Notification.Type)
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("RequireTelegram: expected error without a token")
	}
}

func TestParse_TokenFromEnvironment(t *testing.T) {
	t.Setenv(tokenEnv, "from-env")
	cfg, err := Parse([]byte("workers: 2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want from-env", cfg.Telegram.BotToken)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("RequireTelegram: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "polling_interval: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "polling_interval: soon", "polling_interval"},
		{"interval below one second", "polling_interval: 500ms", "polling_interval"},
		{"too many workers", "workers: 100", "workers"},
		{"negative workers", "workers: -1", "workers"},
		{"unknown fetch mode", "fetch:\n  mode: curl", "fetch.mode"},
		{"bad proxy url", "fetch:\n  proxy_url: not a url", "fetch.proxy_url"},
		{"unknown driver", "store:\n  driver: mysql", "store.driver"},
		{"postgres without dsn", "store:\n  driver: postgres", "store.dsn"},
		{"postgres with file dsn", "store:\n  driver: postgres\n  dsn: upwatch.db", "store.dsn"},
		{"redis without url", "session:\n  backend: redis", "session.redis_url"},
		{"unknown notifier", "notification:\n  type: slack", "notification.type"},
		{"poll timeout too long", "telegram:\n  poll_timeout: 2m", "telegram.poll_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatalf("Parse(%q): expected error", tt.content)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
