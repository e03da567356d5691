package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process settings. Values come from the environment, optionally
// seeded from a .env file in the working directory.
type Config struct {
	Host    string
	Port    int
	AppMode string

	MaxAPIURL     string
	MaxBotToken   string
	WebhookURL    string
	WebhookSecret string

	DatabaseURL   string
	MigrationsDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TriageSessionTTL  time.Duration
	HTTPClientTimeout time.Duration
	ReportFontPath    string

	// EnvFileMissing is set when no .env file was found; callers log it.
	EnvFileMissing bool
}

// BotEnabled reports whether a chat platform token is configured.
func (c *Config) BotEnabled() bool {
	return c.MaxBotToken != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func Load() (*Config, error) {
	missing := false
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = true
	}

	v := viper.New()
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("APP_MODE", "development")
	v.SetDefault("MAX_API_URL", "https://platform-api.max.ru")
	v.SetDefault("MAX_BOT_TOKEN", "")
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_DIR", "file://migrations")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TRIAGE_SESSION_TTL", "30m")
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "10s")
	v.SetDefault("REPORT_FONT_PATH", "")
	v.AutomaticEnv()

	cfg := &Config{
		Host:              strings.TrimSpace(v.GetString("HOST")),
		Port:              v.GetInt("PORT"),
		AppMode:           v.GetString("APP_MODE"),
		MaxAPIURL:         strings.TrimRight(strings.TrimSpace(v.GetString("MAX_API_URL")), "/"),
		MaxBotToken:       strings.TrimSpace(v.GetString("MAX_BOT_TOKEN")),
		WebhookURL:        strings.TrimSpace(v.GetString("WEBHOOK_URL")),
		WebhookSecret:     v.GetString("WEBHOOK_SECRET"),
		DatabaseURL:       strings.TrimSpace(v.GetString("DATABASE_URL")),
		MigrationsDir:     v.GetString("MIGRATIONS_DIR"),
		RedisAddr:         strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		TriageSessionTTL:  v.GetDuration("TRIAGE_SESSION_TTL"),
		HTTPClientTimeout: v.GetDuration("HTTP_CLIENT_TIMEOUT"),
		ReportFontPath:    strings.TrimSpace(v.GetString("REPORT_FONT_PATH")),
		EnvFileMissing:    missing,
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("config: PORT must be between 1 and 65535")
	}
	if cfg.TriageSessionTTL <= 0 {
		cfg.TriageSessionTTL = 30 * time.Minute
	}
	if cfg.HTTPClientTimeout <= 0 {
		cfg.HTTPClientTimeout = 10 * time.Second
	}
	return cfg, nil
}
