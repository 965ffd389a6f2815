package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds settings for the dashboard server.
type ServerConfig struct {
	// Addr is the listen address of the HTTP server.
	Addr string `mapstructure:"addr" yaml:"addr"`

	// StoreDriver is "sqlite" or "postgres".
	StoreDriver string `mapstructure:"store_driver" yaml:"store_driver"`

	// StoreDSN is the SQLite file path or the Postgres connection string.
	StoreDSN string `mapstructure:"store_dsn" yaml:"store_dsn"`

	// KeepAliveSec is the interval between SSE keepalive comments.
	KeepAliveSec int `mapstructure:"keepalive_sec" yaml:"keepalive_sec"`
}

// FeedConfig holds settings for the dashboard client's connection to
// the notification hub and the prompt API.
type FeedConfig struct {
	// BaseURL is the root of the notification endpoints (…/user).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIURL is the root of the prompt and generation endpoints (…/api).
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// ReconnectSec is the stream reconnect delay used until the server
	// advertises its own.
	ReconnectSec int `mapstructure:"reconnect_sec" yaml:"reconnect_sec"`

	// RequestTimeoutSec bounds snapshot and dispatch requests.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// AIConfig holds settings for the generation relay.
type AIConfig struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

// TelegramConfig controls outbound delivery of replies.
type TelegramConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Pacing simulates typing delays between bubbles.
	Pacing bool `mapstructure:"pacing" yaml:"pacing"`
}

// IngestConfig controls the worker that turns incoming Telegram
// messages into cards. It needs both the bot token and the Gemini key.
type IngestConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// DebounceSec is how long a chat must stay quiet before it is
	// summarized.
	DebounceSec int `mapstructure:"debounce_sec" yaml:"debounce_sec"`

	// HistoryLimit caps the lines kept per chat.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`

	// MutedChats never produce cards.
	MutedChats []int64 `mapstructure:"muted_chats" yaml:"muted_chats"`

	// OmitGroups ignores everything but private chats.
	OmitGroups bool `mapstructure:"omit_groups" yaml:"omit_groups"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// File receives TUI logs; the terminal belongs to the UI.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Feed     FeedConfig     `mapstructure:"feed" yaml:"feed"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Ingest   IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/replydeck, or the working directory when
// the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "replydeck")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/replydeck/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaults lists every key with its default value.
func defaults() map[string]any {
	return map[string]any{
		"server.addr":              ":8080",
		"server.store_driver":      "sqlite",
		"server.store_dsn":         filepath.Join(ConfigDir(), "replydeck.db"),
		"server.keepalive_sec":     15,
		"feed.base_url":            "http://localhost:8080/user",
		"feed.api_url":             "http://localhost:8080/api",
		"feed.reconnect_sec":       3,
		"feed.request_timeout_sec": 15,
		"ai.model":                 DefaultPromptModel,
		"ai.temperature":           0.7,
		"telegram.enabled":         false,
		"telegram.pacing":          true,
		"ingest.enabled":           false,
		"ingest.debounce_sec":      15,
		"ingest.history_limit":     20,
		"ingest.muted_chats":       []int64{},
		"ingest.omit_groups":       false,
		"display.theme":            "default",
		"log.level":                "info",
		"log.format":               "text",
		"log.file":                 filepath.Join(ConfigDir(), "replydeck.log"),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with REPLYDECK_ override file values
// (server.addr → REPLYDECK_SERVER_ADDR). If the file does not exist, the
// defaults apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("replydeck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Feed.ReconnectSec <= 0 {
		cfg.Feed.ReconnectSec = 3
	}
	if cfg.Feed.RequestTimeoutSec <= 0 {
		cfg.Feed.RequestTimeoutSec = 15
	}
	if cfg.Server.KeepAliveSec <= 0 {
		cfg.Server.KeepAliveSec = 15
	}
	if cfg.Ingest.DebounceSec <= 0 {
		cfg.Ingest.DebounceSec = 15
	}
	if cfg.Ingest.HistoryLimit <= 0 {
		cfg.Ingest.HistoryLimit = 20
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("feed", cfg.Feed)
	v.Set("ai", cfg.AI)
	v.Set("telegram", cfg.Telegram)
	v.Set("ingest", cfg.Ingest)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
