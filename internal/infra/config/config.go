package config

import (
	"fmt"
	"strings" // For enum normalization
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const DefaultPracticumEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// Window policies.
const (
	WindowAdvance = "advance"
	WindowFixed   = "fixed"
)

// State drivers.
const (
	StateSQLite   = "sqlite"
	StatePostgres = "postgres"
	StateMemory   = "memory"
)

// Bot clients.
const (
	BotClientTelebot = "telebot"
	BotClientBotAPI  = "botapi"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	PracticumToken string `env:"PRACTICUM_TOKEN"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`

	PracticumEndpoint string        `env:"PRACTICUM_ENDPOINT" env-default:"https://practicum.yandex.ru/api/user_api/homework_statuses/"`
	RetryInterval     time.Duration `env:"RETRY_INTERVAL" env-default:"600s"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	InitialLookback   time.Duration `env:"INITIAL_LOOKBACK" env-default:"504h"` // three weeks
	WindowPolicy      string        `env:"WINDOW_POLICY" env-default:"advance"`

	StateDriver string `env:"STATE_DRIVER" env-default:"sqlite"`
	StateDSN    string `env:"STATE_DSN" env-default:"homework_bot.db"`

	BotClient          string `env:"BOT_CLIENT" env-default:"telebot"`
	BotCommandsEnabled bool   `env:"BOT_COMMANDS_ENABLED" env-default:"false"`

	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	LogFile     string `env:"LOG_FILE" env-default:"main.log"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
}

// Load reads configuration from environment variables and .env file (if present).
// Missing credentials are not an error here; see CheckTokens.
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	c.WindowPolicy = strings.ToLower(strings.TrimSpace(c.WindowPolicy))
	c.StateDriver = strings.ToLower(strings.TrimSpace(c.StateDriver))
	c.BotClient = strings.ToLower(strings.TrimSpace(c.BotClient))
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Environment = strings.ToLower(c.Environment)

	switch c.WindowPolicy {
	case WindowAdvance, WindowFixed:
	default:
		return fmt.Errorf("invalid WINDOW_POLICY %q: want %q or %q", c.WindowPolicy, WindowAdvance, WindowFixed)
	}

	switch c.StateDriver {
	case StateSQLite, StatePostgres:
		if c.StateDSN == "" {
			return fmt.Errorf("STATE_DSN is required for state driver %q", c.StateDriver)
		}
	case StateMemory:
	default:
		return fmt.Errorf("invalid STATE_DRIVER %q", c.StateDriver)
	}

	switch c.BotClient {
	case BotClientTelebot, BotClientBotAPI:
	default:
		return fmt.Errorf("invalid BOT_CLIENT %q", c.BotClient)
	}

	if c.RetryInterval < time.Second {
		return fmt.Errorf("RETRY_INTERVAL must be at least 1s, got %s", c.RetryInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.PracticumEndpoint == "" {
		c.PracticumEndpoint = DefaultPracticumEndpoint
	}
	return nil
}

// MissingTokens lists the names of required credentials that are empty.
func (c *AppConfig) MissingTokens() []string {
	var missing []string
	if c.PracticumToken == "" {
		missing = append(missing, "PRACTICUM_TOKEN")
	}
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if c.TelegramChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	return missing
}
