package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/Veraticus/panel-ledger/internal/common"
)

// EnvPrefix namespaces environment overrides, e.g. LEDGER_DATABASE_PATH.
const EnvPrefix = "LEDGER"

// Config is the complete ledger configuration.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	Scraper    ScraperConfig
	Watch      WatchConfig
	Reclassify ReclassifyConfig
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// ScraperConfig controls feed fetching.
type ScraperConfig struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
	MaxAttempts int
	FetchLimit  int
}

// WatchConfig controls scheduled scraping.
type WatchConfig struct {
	Schedule    string
	MetricsAddr string
}

// defaultPollInterval matches the default watch schedule.
const defaultPollInterval = 30 * time.Second

// Interval is the fixed delay of an "@every" schedule, or the default poll
// interval for calendar-style schedules.
func (w WatchConfig) Interval() time.Duration {
	if spec, ok := strings.CutPrefix(strings.TrimSpace(w.Schedule), "@every "); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(spec)); err == nil && d > 0 {
			return d
		}
	}
	return defaultPollInterval
}

// ReclassifyConfig holds reclassification defaults.
type ReclassifyConfig struct {
	BatchSize int
	Workers   int
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())

	v.SetDefault("scraper.base_url", "https://panel.pro4kings.ro")
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.timeout", 15*time.Second)
	v.SetDefault("scraper.rate_limit", 10.0)
	v.SetDefault("scraper.burst", 20)
	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.fetch_limit", 200)

	v.SetDefault("watch.schedule", "@every 30s")
	v.SetDefault("watch.metrics_addr", "")

	v.SetDefault("reclassify.batch_size", 500)
	v.SetDefault("reclassify.workers", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// ConfigureEnv makes LEDGER_* environment variables override file values.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Scraper: ScraperConfig{
			BaseURL:     strings.TrimRight(v.GetString("scraper.base_url"), "/"),
			UserAgent:   v.GetString("scraper.user_agent"),
			Timeout:     v.GetDuration("scraper.timeout"),
			RateLimit:   v.GetFloat64("scraper.rate_limit"),
			Burst:       v.GetInt("scraper.burst"),
			MaxAttempts: v.GetInt("scraper.max_attempts"),
			FetchLimit:  v.GetInt("scraper.fetch_limit"),
		},
		Watch: WatchConfig{
			Schedule:    v.GetString("watch.schedule"),
			MetricsAddr: v.GetString("watch.metrics_addr"),
		},
		Reclassify: ReclassifyConfig{
			BatchSize: v.GetInt("reclassify.batch_size"),
			Workers:   v.GetInt("reclassify.workers"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the ledger cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if c.Scraper.RateLimit <= 0 {
		return fmt.Errorf("%w: scraper.rate_limit must be positive, got %v", common.ErrInvalidConfig, c.Scraper.RateLimit)
	}
	if c.Scraper.Burst <= 0 {
		return fmt.Errorf("%w: scraper.burst must be positive, got %d", common.ErrInvalidConfig, c.Scraper.Burst)
	}
	if c.Reclassify.BatchSize < 1 || c.Reclassify.BatchSize > 100000 {
		return fmt.Errorf("%w: reclassify.batch_size must be between 1 and 100000, got %d", common.ErrInvalidConfig, c.Reclassify.BatchSize)
	}
	if c.Reclassify.Workers < 0 {
		return fmt.Errorf("%w: reclassify.workers cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		return fmt.Errorf("%w: watch.schedule %q: %w", common.ErrInvalidConfig, c.Watch.Schedule, err)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}
