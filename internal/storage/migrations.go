package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version  string
	sqlite   string
	postgres string
}

// migrations are applied in order; versions are never edited once released.
var migrations = []migration{
	{
		version: "001_create_payrolls",
		sqlite: `
			CREATE TABLE IF NOT EXISTS payrolls (
				id TEXT PRIMARY KEY,
				month INTEGER NOT NULL,
				year INTEGER NOT NULL,
				currency TEXT NOT NULL,
				total_gross TEXT NOT NULL,
				total_net TEXT NOT NULL,
				employee_count INTEGER NOT NULL,
				run_id TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE (year, month)
			);
			CREATE TABLE IF NOT EXISTS payroll_employees (
				payroll_id TEXT NOT NULL REFERENCES payrolls(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				employee_id TEXT NOT NULL,
				name TEXT NOT NULL,
				position TEXT NOT NULL,
				gross TEXT NOT NULL,
				net TEXT NOT NULL,
				page INTEGER NOT NULL,
				no_payment BOOLEAN NOT NULL DEFAULT 0,
				PRIMARY KEY (payroll_id, employee_id)
			);
			CREATE INDEX IF NOT EXISTS idx_payroll_employees_seq ON payroll_employees (payroll_id, seq);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS payrolls (
				id UUID PRIMARY KEY,
				month SMALLINT NOT NULL,
				year SMALLINT NOT NULL,
				currency TEXT NOT NULL,
				total_gross NUMERIC(14, 2) NOT NULL,
				total_net NUMERIC(14, 2) NOT NULL,
				employee_count INTEGER NOT NULL,
				run_id TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				UNIQUE (year, month)
			);
			CREATE TABLE IF NOT EXISTS payroll_employees (
				payroll_id UUID NOT NULL REFERENCES payrolls(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				employee_id TEXT NOT NULL,
				name TEXT NOT NULL,
				position TEXT NOT NULL,
				gross NUMERIC(14, 2) NOT NULL,
				net NUMERIC(14, 2) NOT NULL,
				page INTEGER NOT NULL,
				no_payment BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (payroll_id, employee_id)
			);
			CREATE INDEX IF NOT EXISTS idx_payroll_employees_seq ON payroll_employees (payroll_id, seq);
		`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if err := ensureSchemaMigrationsTable(ctx, db, driver); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		stmt := m.sqlite
		if driver == DriverPostgres {
			stmt = m.postgres
		}
		if err := runMigration(ctx, db, m.version, stmt); err != nil {
			return fmt.Errorf("run migration %s: %w", m.version, err)
		}
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB, driver string) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if driver == DriverPostgres {
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`
	}
	_, err := db.ExecContext(ctx, query)
	return err
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func runMigration(ctx context.Context, db *sql.DB, version, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	return tx.Commit()
}
