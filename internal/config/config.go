package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults for optional keys.
const (
	DefaultPollingInterval = 5 * time.Minute
	DefaultWorkers         = 4
	DefaultBaseURL         = "https://www.upwork.com"
	DefaultFetchTimeout    = 30 * time.Second
	DefaultMinDelay        = 2 * time.Second
	DefaultRetryBaseDelay  = 5 * time.Second
	DefaultSQLiteDSN       = "upwatch.db"
	DefaultSessionTTL      = time.Hour
	DefaultTelegramAPIURL  = "https://api.telegram.org"
	DefaultPollTimeout     = 30 * time.Second
)

// tokenEnv is consulted when telegram.bot_token is empty.
const tokenEnv = "TELEGRAM_BOT_TOKEN"

// Config is the root configuration for upwatch.
type Config struct {
	PollingInterval time.Duration `validate:"gte=1s"`
	Workers         int           `validate:"min=1,max=64"`
	Marketplace     MarketplaceConfig
	Fetch           FetchConfig
	Store           StoreConfig
	Session         SessionConfig
	Telegram        TelegramConfig
	Notification    NotificationConfig
}

// MarketplaceConfig locates the job marketplace.
type MarketplaceConfig struct {
	BaseURL string `validate:"required,url"`
}

// FetchConfig controls how pages are retrieved.
type FetchConfig struct {
	Mode           string        `validate:"oneof=http browser"`
	Timeout        time.Duration `validate:"gt=0"`
	MinDelay       time.Duration `validate:"gte=0"` // minimum gap between requests to the marketplace
	MaxRetries     int           `validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `validate:"gt=0"`
	ProxyURL       string        `validate:"omitempty,url"`
}

// StoreConfig selects the subscription store.
type StoreConfig struct {
	Driver string `validate:"oneof=sqlite postgres"`
	DSN    string `validate:"required"`
}

// SessionConfig selects where pending chat actions live.
type SessionConfig struct {
	Backend  string        `validate:"oneof=memory redis"`
	RedisURL string        `validate:"required_if=Backend redis"`
	TTL      time.Duration `validate:"gt=0"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	BotToken    string
	APIURL      string        `validate:"required,url"`
	PollTimeout time.Duration `validate:"gte=0,lte=50s"`
}

// NotificationConfig controls which notifier delivers job alerts.
type NotificationConfig struct {
	Type string `validate:"oneof=telegram log"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string            `yaml:"polling_interval"`
	Workers         int               `yaml:"workers"`
	Marketplace     rawMarketplace    `yaml:"marketplace"`
	Fetch           rawFetchConfig    `yaml:"fetch"`
	Store           rawStoreConfig    `yaml:"store"`
	Session         rawSessionConfig  `yaml:"session"`
	Telegram        rawTelegramConfig `yaml:"telegram"`
	Notification    rawNotification   `yaml:"notification"`
}

type rawMarketplace struct {
	BaseURL string `yaml:"base_url"`
}

type rawFetchConfig struct {
	Mode           string `yaml:"mode"`
	Timeout        string `yaml:"timeout"`
	MinDelay       string `yaml:"min_delay"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
	ProxyURL       string `yaml:"proxy_url"`
}

type rawStoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type rawSessionConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

type rawTelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	APIURL      string `yaml:"api_url"`
	PollTimeout string `yaml:"poll_timeout"`
}

type rawNotification struct {
	Type string `yaml:"type"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML. Empty input yields the defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	d := durationParser{}
	cfg := &Config{
		PollingInterval: d.parse("polling_interval", raw.PollingInterval, DefaultPollingInterval),
		Workers:         orInt(raw.Workers, DefaultWorkers),
		Marketplace: MarketplaceConfig{
			BaseURL: strings.TrimRight(orString(raw.Marketplace.BaseURL, DefaultBaseURL), "/"),
		},
		Fetch: FetchConfig{
			Mode:           strings.ToLower(orString(raw.Fetch.Mode, "http")),
			Timeout:        d.parse("fetch.timeout", raw.Fetch.Timeout, DefaultFetchTimeout),
			MinDelay:       d.parse("fetch.min_delay", raw.Fetch.MinDelay, DefaultMinDelay),
			MaxRetries:     raw.Fetch.MaxRetries,
			RetryBaseDelay: d.parse("fetch.retry_base_delay", raw.Fetch.RetryBaseDelay, DefaultRetryBaseDelay),
			ProxyURL:       raw.Fetch.ProxyURL,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(orString(raw.Store.Driver, "sqlite")),
			DSN:    raw.Store.DSN,
		},
		Session: SessionConfig{
			Backend:  strings.ToLower(orString(raw.Session.Backend, "memory")),
			RedisURL: raw.Session.RedisURL,
			TTL:      d.parse("session.ttl", raw.Session.TTL, DefaultSessionTTL),
		},
		Telegram: TelegramConfig{
			BotToken:    orString(raw.Telegram.BotToken, os.Getenv(tokenEnv)),
			APIURL:      strings.TrimRight(orString(raw.Telegram.APIURL, DefaultTelegramAPIURL), "/"),
			PollTimeout: d.parse("telegram.poll_timeout", raw.Telegram.PollTimeout, DefaultPollTimeout),
		},
		Notification: NotificationConfig{
			Type: strings.ToLower(orString(raw.Notification.Type, "telegram")),
		},
	}
	if d.err != nil {
		return nil, d.err
	}

	// The SQLite file name is a sensible default; a Postgres DSN is not.
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = DefaultSQLiteDSN
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireTelegram reports an error when the Telegram bot cannot be started.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token (or %s) is required", tokenEnv)
	}
	return nil
}

var validate = func() func(*Config) error {
	v := validator.New()
	return func(cfg *Config) error {
		if err := v.Struct(cfg); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				msgs := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					msgs = append(msgs, describe(fe))
				}
				return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
			}
			return fmt.Errorf("invalid config: %w", err)
		}
		if cfg.Store.Driver == "postgres" && !strings.Contains(cfg.Store.DSN, "://") && !strings.Contains(cfg.Store.DSN, "=") {
			return fmt.Errorf("invalid config: store.dsn %q is not a postgres connection string", cfg.Store.DSN)
		}
		return nil
	}
}()

// describe renders a validation failure in terms of the YAML key.
func describe(fe validator.FieldError) string {
	key := yamlKey(fe.Namespace())
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s must satisfy %s (got %v)", key, fe.Tag(), fe.Value())
}

var yamlKeys = map[string]string{
	"PollingInterval": "polling_interval",
	"Workers":         "workers",
	"Marketplace":     "marketplace",
	"BaseURL":         "base_url",
	"Fetch":           "fetch",
	"Mode":            "mode",
	"Timeout":         "timeout",
	"MinDelay":        "min_delay",
	"MaxRetries":      "max_retries",
	"RetryBaseDelay":  "retry_base_delay",
	"ProxyURL":        "proxy_url",
	"Store":           "store",
	"Driver":          "driver",
	"DSN":             "dsn",
	"Session":         "session",
	"Backend":         "backend",
	"RedisURL":        "redis_url",
	"TTL":             "ttl",
	"Telegram":        "telegram",
	"APIURL":          "api_url",
	"PollTimeout":     "poll_timeout",
	"Notification":    "notification",
	"Type":            "type",
}

// yamlKey turns "Config.Fetch.MinDelay" into "fetch.min_delay".
func yamlKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if k, ok := yamlKeys[p]; ok {
			parts[i] = k
		}
	}
	return strings.Join(parts, ".")
}

// durationParser parses optional durations, keeping the first error.
type durationParser struct {
	err error
}

func (d *durationParser) parse(key, raw string, def time.Duration) time.Duration {
	if raw == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", key, raw, err)
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
