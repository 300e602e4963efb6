package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DiscordToken          string        `envconfig:"DISCORD_TOKEN" required:"true"`
	NotificationChannelID string        `envconfig:"NOTIFICATION_CHANNEL_ID"` // empty: first text channel
	GoalUserIDs           []string      `envconfig:"GOAL_USER_IDS"`           // comma-separated
	SpreadsheetID         string        `envconfig:"SPREADSHEET_ID"`          // empty: reports degrade
	GoogleCredentialsFile string        `envconfig:"GOOGLE_CREDENTIALS_FILE"` // empty: application default credentials
	GoalsPath             string        `envconfig:"GOALS_PATH" default:"./data/goals.json"`
	DBPath                string        `envconfig:"DB_PATH" default:"./data/notifications.db"`
	DefaultTZ             string        `envconfig:"DEFAULT_TZ" default:"Asia/Tokyo"`
	RedisURL              string        `envconfig:"REDIS_URL"`
	CacheTTL              time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	HTTPAddr              string        `envconfig:"HTTP_ADDR" default:":8080"`
	AdminToken            string        `envconfig:"ADMIN_TOKEN"`
	UserReportDelay       time.Duration `envconfig:"USER_REPORT_DELAY" default:"1s"`
	AbandonedAfter        time.Duration `envconfig:"ABANDONED_AFTER" default:"720h"`
	ScheduleOverrides     string        `envconfig:"SCHEDULE_OVERRIDES"`       // name=cron;name=cron
	LogLevel              string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	cfg.GoalUserIDs = domain.SplitIDs(cfg.GoalUserIDs)
	return cfg, cfg.Validate()
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DiscordToken) == "" {
		return errors.New("DISCORD_TOKEN must not be empty")
	}
	if _, err := domain.ValidateTZ(c.DefaultTZ); err != nil {
		return fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if _, err := domain.ParseScheduleOverrides(c.ScheduleOverrides); err != nil {
		return fmt.Errorf("SCHEDULE_OVERRIDES: %w", err)
	}
	if c.UserReportDelay < 0 {
		return errors.New("USER_REPORT_DELAY must not be negative")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL: unknown level %q", c.LogLevel)
	}
	return nil
}

// Location returns the configured timezone; Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Overrides returns the parsed SCHEDULE_OVERRIDES.
func (c Config) Overrides() map[string]string {
	m, _ := domain.ParseScheduleOverrides(c.ScheduleOverrides)
	return m
}
