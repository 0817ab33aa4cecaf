// Package config loads runtime configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is the full configuration surface.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backup   BackupConfig
	SMS      SMSConfig
	Line     LineConfig
	Reminder ReminderConfig
	// Timezone is the shop's local zone; it decides what "today" is.
	Timezone string
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string
}

// BackupConfig controls database backups.
type BackupConfig struct {
	Dir     string
	Timeout time.Duration
}

// SMSConfig points at the HTTP SMS gateway.
type SMSConfig struct {
	URL      string
	Username string
	Password string
	Sender   string
}

// LineConfig holds the LINE Notify endpoint and token for staff notices.
type LineConfig struct {
	URL   string
	Token string
}

// ReminderConfig schedules the reminder job. Specs use the five-field cron
// format.
type ReminderConfig struct {
	Enabled      bool
	ExpiryCron   string
	InterestCron string
	ReportCron   string
}

// Load reads environment variables (optionally from envFile) and returns a
// validated Config. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	timeout, err := getenvDuration("PAWN_BACKUP_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	enabled, err := getenvBool("PAWN_REMINDER_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: getenvWithDefault("PAWN_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			Path: getenvWithDefault("PAWN_DB_PATH", "zastavljalnica.db"),
		},
		Backup: BackupConfig{
			Dir:     getenvWithDefault("PAWN_BACKUP_DIR", "backups"),
			Timeout: timeout,
		},
		SMS: SMSConfig{
			URL:      os.Getenv("PAWN_SMS_URL"),
			Username: os.Getenv("PAWN_SMS_USERNAME"),
			Password: os.Getenv("PAWN_SMS_PASSWORD"),
			Sender:   getenvWithDefault("PAWN_SMS_SENDER", "PAWNSHOP"),
		},
		Line: LineConfig{
			URL:   getenvWithDefault("PAWN_LINE_URL", "https://notify-api.line.me/api/notify"),
			Token: os.Getenv("PAWN_LINE_TOKEN"),
		},
		Reminder: ReminderConfig{
			Enabled:      enabled,
			ExpiryCron:   getenvWithDefault("PAWN_REMINDER_CRON", "0 9 * * *"),
			InterestCron: getenvWithDefault("PAWN_INTEREST_CRON", "0 10 * * 1"),
			ReportCron:   getenvWithDefault("PAWN_REPORT_CRON", "0 18 * * *"),
		},
		Timezone: getenvWithDefault("PAWN_TIMEZONE", "Asia/Bangkok"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// well-formed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch {
	case c.Server.Addr == "":
		return errors.New("PAWN_ADDR must not be empty")
	case c.Database.Path == "":
		return errors.New("PAWN_DB_PATH must not be empty")
	case c.Backup.Timeout <= 0:
		return errors.New("PAWN_BACKUP_TIMEOUT must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if !c.Reminder.Enabled {
		return nil
	}
	if c.SMS.URL == "" {
		return errors.New("PAWN_SMS_URL must be provided when reminders are enabled")
	}
	specs := map[string]string{
		"PAWN_REMINDER_CRON": c.Reminder.ExpiryCron,
		"PAWN_INTEREST_CRON": c.Reminder.InterestCron,
		"PAWN_REPORT_CRON":   c.Reminder.ReportCron,
	}
	for key, spec := range specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("PAWN_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
