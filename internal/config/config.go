package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"KabuScope/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Registry struct {
		Path string `yaml:"path"`
	} `yaml:"registry"`
	DataSource struct {
		Kind      string `yaml:"kind"` // "yahoo", "replay" or "mock"
		ReplayDir string `yaml:"replay_dir"`
	} `yaml:"data_source"`
	Quote struct {
		TTLSeconds     int    `yaml:"ttl_seconds"`
		Period         string `yaml:"period"`
		Interval       string `yaml:"interval"`
		Window         int    `yaml:"window"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Workers        int    `yaml:"workers"`
	} `yaml:"quote"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("KABUSCOPE_REGISTRY"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("KABUSCOPE_DATA_SOURCE"); v != "" {
		cfg.DataSource.Kind = v
	}
	if v := os.Getenv("KABUSCOPE_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("KABUSCOPE_REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("KABUSCOPE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quote.TTLSeconds = n
		}
	}
	if v := os.Getenv("KABUSCOPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Defaults
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "data/registry.csv"
	}
	if cfg.DataSource.Kind == "" {
		cfg.DataSource.Kind = "yahoo"
	}
	if cfg.Quote.TTLSeconds == 0 {
		cfg.Quote.TTLSeconds = 300
	}
	if cfg.Quote.Period == "" {
		cfg.Quote.Period = "1y"
	}
	if cfg.Quote.Interval == "" {
		cfg.Quote.Interval = "daily"
	}
	if cfg.Quote.Window == 0 {
		cfg.Quote.Window = 20
	}
	if cfg.Quote.TimeoutSeconds == 0 {
		cfg.Quote.TimeoutSeconds = 45
	}
	if cfg.Quote.Workers == 0 {
		cfg.Quote.Workers = 6
	}
	if cfg.Schedule.RefreshCron == "" {
		// every 5 minutes during TSE hours (JST), Monday to Friday
		cfg.Schedule.RefreshCron = "0 */5 9-15 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/kabuscope.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "logs/kabuscope.log"
	}

	return cfg, nil
}

// Validate checks that all required fields are coherent.
func (c *Config) Validate() error {
	switch c.DataSource.Kind {
	case "yahoo", "mock":
	case "replay":
		if c.DataSource.ReplayDir == "" {
			return fmt.Errorf("data_source.replay_dir is required for the replay source")
		}
	default:
		return fmt.Errorf("unknown data_source.kind %q", c.DataSource.Kind)
	}
	if !model.Period(c.Quote.Period).Valid() {
		return fmt.Errorf("quote.period %q is not a recognized lookback range", c.Quote.Period)
	}
	if _, err := model.ParseInterval(c.Quote.Interval); err != nil {
		return fmt.Errorf("quote.interval: %w", err)
	}
	if c.Quote.Window < 1 {
		return fmt.Errorf("quote.window must be >= 1")
	}
	if c.Quote.Workers < 1 {
		return fmt.Errorf("quote.workers must be >= 1")
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	return nil
}
