// Package config reads the bot's settings from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kgeu-bot/internal/database"
	"kgeu-bot/internal/notify"
	"kgeu-bot/internal/portal"
	"kgeu-bot/internal/schedule"
	"kgeu-bot/pkg/logger"
)

const (
	StoreMemory = "memory"
)

type Config struct {
	BotToken       string
	BotAPIEndpoint string

	PortalBaseURL string
	PortalTimeout time.Duration

	TermStart time.Time
	FirstWeek int
	LastWeek  int
	Location  *time.Location

	StoreDriver string
	Database    database.Config

	// CredentialsKey is the hex key sealing stored passwords; empty disables sealing.
	CredentialsKey string

	NotifyAt notify.At

	DialogTTL            time.Duration
	MaxConcurrentUpdates int64
	ExportWorkers        int

	Logger logger.Config
}

// Load parses configuration values from the current process environment.
// Missing and invalid keys are collected and reported together.
func Load() (Config, error) {
	var missing, invalid []string

	cfg := Config{
		BotToken:       getEnv("BOT_TOKEN", ""),
		BotAPIEndpoint: getEnv("BOT_API_ENDPOINT", ""),
		PortalBaseURL:  getEnv("PORTAL_BASE_URL", portal.DefaultBaseURL),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", database.DriverPostgres)),
		Database: database.Config{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			DBName:     os.Getenv("DB_NAME"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "bot.db"),
		},
		CredentialsKey: os.Getenv("CREDENTIALS_KEY"),
		Logger: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}

	var err error
	if cfg.PortalTimeout, err = parseDuration("PORTAL_TIMEOUT", portal.DefaultTimeout); err != nil {
		invalid = append(invalid, "PORTAL_TIMEOUT")
	}
	if cfg.DialogTTL, err = parseDuration("DIALOG_TTL", 15*time.Minute); err != nil {
		invalid = append(invalid, "DIALOG_TTL")
	}

	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Europe/Moscow")); err != nil {
		invalid = append(invalid, "TIMEZONE")
		cfg.Location = time.UTC
	}

	if cfg.TermStart, err = time.ParseInLocation("2006-01-02", getEnv("SCHEDULE_START_DATE", "2024-09-02"), cfg.Location); err != nil {
		invalid = append(invalid, "SCHEDULE_START_DATE")
	}
	if cfg.FirstWeek, err = parseInt("FIRST_WEEK_NUMBER", 1); err != nil {
		invalid = append(invalid, "FIRST_WEEK_NUMBER")
	}
	if cfg.LastWeek, err = parseInt("LAST_WEEK_NUMBER", schedule.DefaultLastWeek); err != nil || cfg.LastWeek < cfg.FirstWeek {
		invalid = append(invalid, "LAST_WEEK_NUMBER")
	}
	if cfg.NotifyAt, err = notify.ParseAt(getEnv("NOTIFY_AT", "18:00")); err != nil {
		invalid = append(invalid, "NOTIFY_AT")
	}

	n, err := parseInt("MAX_CONCURRENT_UPDATES", 16)
	if err != nil || n <= 0 {
		invalid = append(invalid, "MAX_CONCURRENT_UPDATES")
	}
	cfg.MaxConcurrentUpdates = int64(n)
	if cfg.ExportWorkers, err = parseInt("EXPORT_WORKERS", 4); err != nil || cfg.ExportWorkers <= 0 {
		invalid = append(invalid, "EXPORT_WORKERS")
	}

	if cfg.CredentialsKey != "" {
		if raw, err := hex.DecodeString(cfg.CredentialsKey); err != nil || len(raw) != 32 {
			invalid = append(invalid, "CREDENTIALS_KEY")
		}
	}

	switch cfg.StoreDriver {
	case StoreMemory, database.DriverSQLite:
	case database.DriverPostgres:
		if cfg.Database.User == "" {
			missing = append(missing, "DB_USER")
		}
		if cfg.Database.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
	default:
		invalid = append(invalid, "STORE_DRIVER")
	}
	cfg.Database.Driver = cfg.StoreDriver

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, err
	}
	if d <= 0 {
		return def, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
