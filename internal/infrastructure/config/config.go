package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultModel is used when neither AI_MODEL nor a provider-specific model
// variable is set.
const DefaultModel = "claude-sonnet-4-20250514"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Terminal   TerminalConfig
	AI         AIConfig
	HTTPClient HTTPClientConfig
	Events     EventsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TerminalConfig holds pseudo-terminal session defaults.
type TerminalConfig struct {
	DefaultCols uint16 `envconfig:"TERMINAL_DEFAULT_COLS" default:"80"`
	DefaultRows uint16 `envconfig:"TERMINAL_DEFAULT_ROWS" default:"24"`
	ReadBuffer  int    `envconfig:"TERMINAL_READ_BUFFER" default:"4096"`
}

// AIConfig holds the initial chat provider configuration. Empty fields are
// filled from the ANTHROPIC_* / OPENAI_* variables by Load.
type AIConfig struct {
	Provider     string `envconfig:"AI_PROVIDER" default:"openai"`
	APIKey       string `envconfig:"AI_API_KEY"`
	BaseURL      string `envconfig:"AI_BASE_URL"`
	Model        string `envconfig:"AI_MODEL"`
	SettingsFile string `envconfig:"AI_SETTINGS_FILE"`
}

// HTTPClientConfig holds outbound provider client configuration.
type HTTPClientConfig struct {
	HeaderTimeout     time.Duration `envconfig:"AI_HTTP_HEADER_TIMEOUT" default:"60s"`
	Retries           int           `envconfig:"AI_HTTP_RETRIES" default:"0"`
	RequestsPerSecond float64       `envconfig:"AI_HTTP_RPS" default:"10"`
}

// EventsConfig holds event bus configuration.
type EventsConfig struct {
	SubscriberBuffer int `envconfig:"EVENT_BUFFER" default:"1024"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.AI.applyFallbacks(os.Getenv)
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			DefaultCols: 80,
			DefaultRows: 24,
			ReadBuffer:  4096,
		},
		AI: AIConfig{
			Provider: "openai",
			Model:    DefaultModel,
		},
		HTTPClient: HTTPClientConfig{
			HeaderTimeout:     60 * time.Second,
			RequestsPerSecond: 10,
		},
		Events: EventsConfig{
			SubscriberBuffer: 1024,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func (a *AIConfig) applyFallbacks(getenv func(string) string) {
	if a.APIKey == "" {
		a.APIKey = firstNonEmpty(getenv, "ANTHROPIC_AUTH_TOKEN", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")
	}
	if a.BaseURL == "" {
		a.BaseURL = firstNonEmpty(getenv, "ANTHROPIC_BASE_URL", "OPENAI_BASE_URL")
	}
	if a.Model == "" {
		a.Model = firstNonEmpty(getenv, "ANTHROPIC_MODEL", "OPENAI_MODEL")
	}
	if a.Model == "" {
		a.Model = DefaultModel
	}
}

func firstNonEmpty(getenv func(string) string, keys ...string) string {
	for _, key := range keys {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return ""
}
