// Package storage persists extracted payrolls in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/spherical/payroll-extract/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection settings.
type Config struct {
	Driver          string // sqlite or postgres
	DSN             string // file path for sqlite, connection URL for postgres
	JournalMode     string // sqlite only
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           RetryConfig // connection attempts before giving up
}

// Store is an open database with its schema applied.
type Store struct {
	db       *sql.DB
	driver   string
	Payrolls *PayrollRepository
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driverName, dsn, err := driverDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domain.StorageError("open database", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite serializes writers; one connection also keeps :memory: databases alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := pingWithRetry(ctx, db, cfg.Retry); err != nil {
		_ = db.Close()
		return nil, domain.StorageError(fmt.Sprintf("connect to %s", cfg.Driver), err)
	}

	if err := Migrate(ctx, db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, domain.StorageError("migrate database", err)
	}

	return &Store{
		db:       db,
		driver:   cfg.Driver,
		Payrolls: NewPayrollRepository(db),
	}, nil
}

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.driver }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func driverDSN(cfg Config) (string, string, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			return "", "", domain.ConfigError("sqlite path is required", nil)
		}
		params := url.Values{}
		params.Set("_foreign_keys", "on")
		params.Set("_busy_timeout", "5000")
		if path == ":memory:" {
			return "sqlite3", "file::memory:?" + params.Encode(), nil
		}
		if cfg.JournalMode != "" {
			params.Set("_journal_mode", cfg.JournalMode)
		}
		return "sqlite3", "file:" + path + "?" + params.Encode(), nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", "", domain.ConfigError("postgres dsn is required", nil)
		}
		return "postgres", cfg.DSN, nil
	default:
		return "", "", domain.ConfigError(fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}
}
