package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/payroll-extract/internal/cache"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/extract"
	"github.com/spherical/payroll-extract/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PAYROLL_MONTH_YEAR", "PAYROLL_DUPLICATE_POLICY", "PAYROLL_CURRENCY_SYMBOL",
		"PAYROLL_MAX_ANOMALIES", "PAYROLL_IDENTIFIER_DIGITS", "PAYROLL_CONCURRENCY",
		"DATABASE_URL", "REDIS_URL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultIdentifierDigits, cfg.Extraction.MinIdentifierDigits)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "none", cfg.Cache.Driver)

	opts, err := cfg.ExtractOptions()
	require.NoError(t, err)
	assert.Equal(t, extract.DefaultOptions().Fingerprint(), opts.Fingerprint())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "payroll.yaml", `
extraction:
  period_override: "09/2025"
  min_identifier_digits: 5
  currency_symbol: "Kz"
  duplicate_policy: first
  max_anomalies: 3
batch:
  concurrency: 8
database:
  sqlite:
    path: data/payroll.db
cache:
  driver: memory
  ttl: 1h
observability:
  log_level: debug
  log_format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data/payroll.db"), cfg.DatabaseDSN())
	assert.Equal(t, domain.LogLevelDebug, cfg.LogConfig().Level)

	opts, err := cfg.ExtractOptions()
	require.NoError(t, err)
	assert.Equal(t, domain.Period{Month: 9, Year: 2025}, opts.Parser.PeriodOverride)
	assert.Equal(t, 5, opts.Parser.IdentifierDigits)
	assert.Equal(t, "Kz", opts.Parser.CurrencySymbol)
	assert.Equal(t, extract.DuplicateFirst, opts.DuplicatePolicy)
	assert.Equal(t, 3, opts.MaxAnomalies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYROLL_MONTH_YEAR", "3/2024")
	t.Setenv("PAYROLL_DUPLICATE_POLICY", "first")
	t.Setenv("PAYROLL_MAX_ANOMALIES", "2")
	t.Setenv("PAYROLL_IDENTIFIER_DIGITS", "7")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/payroll?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/payroll?sslmode=disable", cfg.DatabaseDSN())
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Cache.Redis.URL)
	assert.Equal(t, domain.LogLevelWarn, cfg.LogConfig().Level)

	opts, err := cfg.ExtractOptions()
	require.NoError(t, err)
	assert.Equal(t, domain.Period{Month: 3, Year: 2024}, opts.Parser.PeriodOverride)
	assert.Equal(t, extract.DuplicateFirst, opts.DuplicatePolicy)
	assert.Equal(t, 2, opts.MaxAnomalies)
	assert.Equal(t, 7, opts.Parser.IdentifierDigits)
}

func TestLoad_SQLiteURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "sqlite:/var/lib/payroll.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/payroll.db", cfg.DatabaseDSN())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "bad override", env: map[string]string{"PAYROLL_MONTH_YEAR": "13/2025"}},
		{name: "bad policy", env: map[string]string{"PAYROLL_DUPLICATE_POLICY": "newest"}},
		{name: "non integer", env: map[string]string{"PAYROLL_MAX_ANOMALIES": "many"}},
		{name: "zero digits", env: map[string]string{"PAYROLL_IDENTIFIER_DIGITS": "0"}},
		{name: "bad cache driver", yaml: "cache:\n  driver: memcached\n"},
		{name: "postgres without dsn", yaml: "database:\n  driver: postgres\n"},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "malformed yaml", yaml: "extraction: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "c.yaml", tt.yaml)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestConfig_ValidateNamesYAMLField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Driver = "memcached"
	assert.ErrorContains(t, cfg.Validate(), `invalid cache.driver "memcached"`)

	cfg = DefaultConfig()
	cfg.Batch.Concurrency = 0
	assert.ErrorContains(t, cfg.Validate(), "batch.concurrency")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PAYROLL_MONTH_YEAR")
	path := writeFile(t, ".env", "PAYROLL_MONTH_YEAR=11/2024\n")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "11/2024", os.Getenv("PAYROLL_MONTH_YEAR"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "11/2024", cfg.Extraction.PeriodOverride)
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/abs/db", ResolveRelativePath("/etc/payroll/c.yaml", "/abs/db"))
	assert.Equal(t, "/etc/payroll/db", ResolveRelativePath("/etc/payroll/c.yaml", "db"))
	assert.Equal(t, ":memory:", ResolveRelativePath("/etc/payroll/c.yaml", ":memory:"))
}

func TestConfig_StorageConfig(t *testing.T) {
	cfg := DefaultConfig()
	sc := cfg.StorageConfig()
	assert.Equal(t, storage.DriverSQLite, sc.Driver)
	assert.Equal(t, "payroll.db", sc.DSN)
	assert.Equal(t, "WAL", sc.JournalMode)
	assert.Zero(t, sc.Retry.MaxRetries)

	cfg.Database.Driver = "postgres"
	cfg.Database.Postgres.DSN = "postgres://localhost/payroll"
	sc = cfg.StorageConfig()
	assert.Equal(t, "postgres://localhost/payroll", sc.DSN)
	assert.Equal(t, 10, sc.MaxOpenConns)
	assert.Equal(t, storage.DefaultRetryConfig(), sc.Retry)
}

func TestConfig_OpenResultCache(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()

	rc, client, err := cfg.OpenResultCache(ctx, domain.NopLogger())
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Nil(t, client)

	cfg.Cache.Driver = "memory"
	rc, client, err = cfg.OpenResultCache(ctx, domain.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.IsType(t, &cache.MemoryClient{}, client)
	require.NoError(t, client.Close())

	mr := miniredis.RunT(t)
	cfg.Cache.Driver = "redis"
	cfg.Cache.Redis.URL = "redis://" + mr.Addr()
	rc, client, err = cfg.OpenResultCache(ctx, domain.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.IsType(t, &cache.RedisClient{}, client)
	require.NoError(t, client.Close())

	mr.Close()
	_, _, err = cfg.OpenResultCache(ctx, domain.NopLogger())
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}
