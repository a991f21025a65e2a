// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Sync     SyncConfig     `yaml:"sync"`
	Harvest  HarvestConfig  `yaml:"harvest"`
	Localize LocalizeConfig `yaml:"localize"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the operational HTTP endpoint (health + metrics).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// FetchConfig defines store page-fetch settings shared by all adapters.
type FetchConfig struct {
	PerSecond  float64       `yaml:"per_second"`
	Burst      int           `yaml:"burst"`
	DailyLimit int64         `yaml:"daily_limit"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
}

// SyncConfig defines the catalog sync pass.
type SyncConfig struct {
	Interval  time.Duration `yaml:"interval"`
	ChunkSize int           `yaml:"chunk_size"`
	Pruning   PruningConfig `yaml:"pruning"`
	Resume    ResumeConfig  `yaml:"resume"`
}

// PruningConfig controls deletion of long-unavailable products.
// Disabled by default; when enabled, a product that is unavailable and
// has not been confirmed alive within Retention is deleted together
// with its price history.
type PruningConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Retention time.Duration `yaml:"retention"`
}

// ResumeConfig is an optional watermark for restarting a sync pass.
type ResumeConfig struct {
	StoreID   int64 `yaml:"store_id"`
	ProductID int64 `yaml:"product_id"`
}

// HarvestConfig defines the search-term harvest pass.
type HarvestConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Retries   int           `yaml:"retries"`
	Backoff   time.Duration `yaml:"backoff"`
	TermsFile string        `yaml:"terms_file"`
}

// LocalizeConfig defines the title-localization pass.
type LocalizeConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Language  string        `yaml:"language"`
	ChunkSize int           `yaml:"chunk_size"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyFetchDefaults(&cfg.Fetch)
	applySyncDefaults(&cfg.Sync)
	applyHarvestDefaults(&cfg.Harvest)
	applyLocalizeDefaults(&cfg.Localize)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyFetchDefaults(f *FetchConfig) {
	if f.PerSecond == 0 {
		f.PerSecond = 2.0
	}
	if f.Burst == 0 {
		f.Burst = 4
	}
	if f.DailyLimit == 0 {
		f.DailyLimit = 500000
	}
	if f.Timeout == 0 {
		f.Timeout = 30 * time.Second
	}
	if f.UserAgent == "" {
		f.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
}

func applySyncDefaults(s *SyncConfig) {
	if s.Interval == 0 {
		s.Interval = time.Hour
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = 2000
	}
	if s.Pruning.Retention == 0 {
		s.Pruning.Retention = 14 * 24 * time.Hour
	}
}

func applyHarvestDefaults(h *HarvestConfig) {
	if h.Interval == 0 {
		h.Interval = time.Hour
	}
	if h.Retries == 0 {
		h.Retries = 3
	}
	if h.Backoff == 0 {
		h.Backoff = 5 * time.Second
	}
}

func applyLocalizeDefaults(l *LocalizeConfig) {
	if l.Interval == 0 {
		l.Interval = time.Hour
	}
	if l.Language == "" {
		l.Language = "ar"
	}
	if l.ChunkSize == 0 {
		l.ChunkSize = 100
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Sync.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("sync.chunk_size must be positive (got %d)", cfg.Sync.ChunkSize))
	}
	if cfg.Harvest.TermsFile == "" {
		errs = append(errs, fmt.Errorf("harvest.terms_file is required"))
	}

	if _, err := language.Parse(cfg.Localize.Language); err != nil {
		errs = append(errs, fmt.Errorf("localize.language %q is not a valid language tag: %w", cfg.Localize.Language, err))
	}

	return errors.Join(errs...)
}
