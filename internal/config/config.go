// Package config provides configuration loading for payroll extraction.
// Supports YAML files, .env files and environment variable overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/payroll-extract/internal/cache"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/extract"
	"github.com/spherical/payroll-extract/internal/storage"
)

// Config holds all configuration for payroll extraction.
type Config struct {
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Batch         BatchConfig         `yaml:"batch"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ExtractionConfig holds parser and orchestrator settings.
type ExtractionConfig struct {
	PeriodOverride      string `yaml:"period_override"` // MM/YYYY, used only when the text has no period
	MinIdentifierDigits int    `yaml:"min_identifier_digits" validate:"min=1"`
	Currency            string `yaml:"currency"`
	CurrencySymbol      string `yaml:"currency_symbol"`
	AmbiguousSeparator  string `yaml:"ambiguous_separator"` // decimal or thousands
	PeriodScanPages     int    `yaml:"period_scan_pages" validate:"min=0"`
	DuplicatePolicy     string `yaml:"duplicate_policy" validate:"omitempty,oneof=last first"`
	MaxAnomalies        int    `yaml:"max_anomalies" validate:"min=0"`
}

// BatchConfig holds multi-document settings.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" validate:"min=1"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" validate:"oneof=sqlite postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver" validate:"oneof=none memory redis"`
	TTL        time.Duration `yaml:"ttl" validate:"min=0"`
	MaxEntries int           `yaml:"max_entries" validate:"min=0"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// An empty path uses defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}

		if cfg.Database.Driver == "sqlite" {
			cfg.Database.SQLite.Path = ResolveRelativePath(path, cfg.Database.SQLite.Path)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables already set. Missing files are ignored; with no
// arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.ConfigError(fmt.Sprintf("load %s", f), err)
		}
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MinIdentifierDigits: domain.DefaultIdentifierDigits,
			Currency:            domain.DefaultCurrency,
			AmbiguousSeparator:  string(domain.SeparatorDecimal),
			PeriodScanPages:     2,
			DuplicatePolicy:     string(extract.DuplicateLast),
		},
		Batch: BatchConfig{
			Concurrency: extract.DefaultConcurrency,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "payroll.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "none",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "payroll:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.ExtractOptions(); err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fe := fieldErrs[0]
			_, field, _ := strings.Cut(fe.Namespace(), ".")
			return fmt.Errorf("invalid %s %q: must satisfy %s", field, fmt.Sprint(fe.Value()), strings.TrimSpace(fe.Tag()+" "+fe.Param()))
		}
		return err
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a dsn")
	}

	return nil
}

var validate = newValidator()

// newValidator reports fields by their YAML names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ExtractOptions converts the extraction settings into orchestrator options.
func (c *Config) ExtractOptions() (extract.Options, error) {
	e := c.Extraction

	opts := extract.DefaultOptions()
	opts.Parser.IdentifierDigits = e.MinIdentifierDigits
	opts.Parser.CurrencySymbol = e.CurrencySymbol
	opts.Parser.PeriodScanPages = e.PeriodScanPages
	opts.Parser.Ambiguous = domain.SeparatorMode(e.AmbiguousSeparator)
	opts.MaxAnomalies = e.MaxAnomalies
	if e.Currency != "" {
		opts.Parser.Currency = strings.ToUpper(e.Currency)
	}

	if e.PeriodOverride != "" {
		p, err := domain.ParsePeriod(e.PeriodOverride)
		if err != nil {
			return extract.Options{}, fmt.Errorf("period_override: %w", err)
		}
		opts.Parser.PeriodOverride = p
	}

	policy, err := extract.ParseDuplicatePolicy(e.DuplicatePolicy)
	if err != nil {
		return extract.Options{}, err
	}
	opts.DuplicatePolicy = policy

	if err := opts.Validate(); err != nil {
		return extract.Options{}, err
	}
	return opts, nil
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() domain.LogConfig {
	return domain.LogConfig{
		Level:  domain.ParseLogLevel(c.Observability.LogLevel),
		Format: c.Observability.LogFormat,
	}
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// StorageConfig returns the database settings for storage.Open.
func (c *Config) StorageConfig() storage.Config {
	cfg := storage.Config{
		Driver: c.Database.Driver,
		DSN:    c.DatabaseDSN(),
	}
	if c.Database.Driver == storage.DriverSQLite {
		cfg.JournalMode = c.Database.SQLite.JournalMode
		cfg.MaxOpenConns = c.Database.SQLite.MaxOpenConns
	} else {
		cfg.MaxOpenConns = c.Database.Postgres.MaxOpenConns
		cfg.MaxIdleConns = c.Database.Postgres.MaxIdleConns
		cfg.ConnMaxLifetime = c.Database.Postgres.ConnMaxLifetime
		cfg.Retry = storage.DefaultRetryConfig()
	}
	return cfg
}

// OpenResultCache builds the configured result cache. It returns nil when
// caching is disabled.
func (c *Config) OpenResultCache(ctx context.Context, logger *domain.Logger) (*cache.ResultCache, cache.Client, error) {
	var client cache.Client
	switch c.Cache.Driver {
	case "memory":
		client = cache.NewMemoryClient(c.Cache.MaxEntries)
	case "redis":
		r := c.Cache.Redis
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			URL:      r.URL,
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			PoolSize: r.PoolSize,
			Prefix:   r.Prefix,
		})
		if err != nil {
			return nil, nil, domain.ConfigError("connect result cache", err)
		}
		client = rc
	default:
		return nil, nil, nil
	}

	rc := cache.NewResultCache(client, cache.ResultCacheConfig{TTL: c.Cache.TTL}, logger)
	return rc, client, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PAYROLL_MONTH_YEAR"); v != "" {
		cfg.Extraction.PeriodOverride = v
	}

	if v := os.Getenv("PAYROLL_DUPLICATE_POLICY"); v != "" {
		cfg.Extraction.DuplicatePolicy = v
	}

	if v := os.Getenv("PAYROLL_CURRENCY_SYMBOL"); v != "" {
		cfg.Extraction.CurrencySymbol = v
	}

	for name, dst := range map[string]*int{
		"PAYROLL_MAX_ANOMALIES":     &cfg.Extraction.MaxAnomalies,
		"PAYROLL_IDENTIFIER_DIGITS": &cfg.Extraction.MinIdentifierDigits,
		"PAYROLL_CONCURRENCY":       &cfg.Batch.Concurrency,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("%s must be an integer", name), err)
		}
		*dst = n
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.URL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || targetPath == ":memory:" || filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
