package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "remindbot/internal/errors"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	BotToken       string
	BotUsername    string
	TelegramAPIURL string
	Mode           string
	Port           string
	WebhookURL     string
	WebhookSecret  string

	DatabaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	DeliveryInterval time.Duration
	RateLimitMax     int
	RateLimitWindow  time.Duration
	SendRatePerSec   int

	LogLevel string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	interval, err := GetEnvDuration("DELIVERY_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	window, err := GetEnvDuration("RATE_LIMIT_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}
	rateMax, err := GetEnvInt("RATE_LIMIT_MAX", 5)
	if err != nil {
		return nil, err
	}
	sendRate, err := GetEnvInt("SEND_RATE_PER_SEC", 20)
	if err != nil {
		return nil, err
	}

	redisHost, redisPort, redisPassword := RedisConfig()

	cfg := &Config{
		BotToken:         GetEnv("BOT_TOKEN", ""),
		BotUsername:      strings.TrimPrefix(GetEnv("BOT_USERNAME", ""), "@"),
		TelegramAPIURL:   GetEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		Mode:             GetEnv("TELEGRAM_MODE", ModePolling),
		Port:             GetEnv("PORT", "8080"),
		WebhookURL:       GetEnv("WEBHOOK_URL", ""),
		WebhookSecret:    GetEnv("WEBHOOK_SECRET", ""),
		DatabaseURL:      GetEnv("DATABASE_URL", ""),
		RedisHost:        redisHost,
		RedisPort:        redisPort,
		RedisPassword:    redisPassword,
		DeliveryInterval: interval,
		RateLimitMax:     rateMax,
		RateLimitWindow:  window,
		SendRatePerSec:   sendRate,
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return apperrors.New(apperrors.ErrCodeMissingConfig, "BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return apperrors.New(apperrors.ErrCodeMissingConfig, "DATABASE_URL is required")
	}
	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			return apperrors.New(apperrors.ErrCodeMissingConfig, "WEBHOOK_URL is required in webhook mode")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, fmt.Sprintf("unknown TELEGRAM_MODE %q", c.Mode))
	}
	if c.DeliveryInterval <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "DELIVERY_INTERVAL must be positive")
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "rate limit settings must be positive")
	}
	if c.SendRatePerSec <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "SEND_RATE_PER_SEC must be positive")
	}
	return nil
}

// RedisConfig returns host, port, password. An empty host disables redis.
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// GetEnvDuration accepts Go duration strings ("90s", "1h").
func GetEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, fmt.Sprintf("%s must be a duration", key))
	}
	return d, nil
}
