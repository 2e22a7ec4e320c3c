package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/payroll-extract/internal/domain"
)

// PayrollRecord is the stored header of a payroll.
type PayrollRecord struct {
	ID            uuid.UUID
	Period        domain.Period
	Currency      string
	TotalGross    domain.Money
	TotalNet      domain.Money
	EmployeeCount int
	RunID         string
	Source        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PayrollRepository handles payroll persistence keyed by period.
type PayrollRepository struct {
	db *sql.DB
}

// NewPayrollRepository creates a new payroll repository.
func NewPayrollRepository(db *sql.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

var _ domain.PayrollStore = (*PayrollRepository)(nil)

// Save stores payroll, replacing any payroll already stored for its period.
// The original creation time of a replaced payroll is kept.
func (r *PayrollRepository) Save(ctx context.Context, payroll *domain.Payroll, meta domain.SaveMeta) error {
	if payroll == nil {
		return domain.InvalidOperationError("cannot save a nil payroll", nil)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("begin transaction", err)
	}
	defer tx.Rollback()

	period := payroll.Period()
	now := time.Now().UTC()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM payrolls WHERE year = $1 AND month = $2`,
		period.Year, period.Month,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payrolls (id, month, year, currency, total_gross, total_net,
				employee_count, run_id, source, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			id, period.Month, period.Year, payroll.Currency(),
			amount(payroll.TotalGross()), amount(payroll.TotalNet()),
			payroll.Len(), meta.RunID, meta.Source, now, now,
		)
		if err != nil {
			return domain.StorageError("insert payroll", err)
		}
	case err != nil:
		return domain.StorageError("look up payroll", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE payrolls SET currency = $1, total_gross = $2, total_net = $3,
				employee_count = $4, run_id = $5, source = $6, updated_at = $7
			WHERE id = $8
		`,
			payroll.Currency(), amount(payroll.TotalGross()), amount(payroll.TotalNet()),
			payroll.Len(), meta.RunID, meta.Source, now, id,
		)
		if err != nil {
			return domain.StorageError("update payroll", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payroll_employees WHERE payroll_id = $1`, id); err != nil {
			return domain.StorageError("clear payroll employees", err)
		}
	}

	for seq, e := range payroll.All() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payroll_employees (payroll_id, seq, employee_id, name, position,
				gross, net, page, no_payment)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			id, seq, e.ID, e.Name, e.Position, amount(e.Gross), amount(e.Net), e.Page, e.NoPayment,
		)
		if err != nil {
			return domain.StorageError(fmt.Sprintf("insert employee %s", e.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError("commit payroll", err)
	}
	return nil
}

// FindByPeriod loads the payroll stored for period with employees in detection
// order.
func (r *PayrollRepository) FindByPeriod(ctx context.Context, period domain.Period) (*domain.Payroll, error) {
	rec, err := r.Record(ctx, period)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT employee_id, name, position, gross, net, page, no_payment
		FROM payroll_employees
		WHERE payroll_id = $1
		ORDER BY seq
	`, rec.ID.String())
	if err != nil {
		return nil, domain.StorageError("query payroll employees", err)
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var s domain.EmployeeSnapshot
		if err := rows.Scan(&s.ID, &s.Name, &s.Position, &s.Gross, &s.Net, &s.Page, &s.NoPayment); err != nil {
			return nil, domain.StorageError("scan payroll employee", err)
		}
		e, err := s.Employee(rec.Currency)
		if err != nil {
			return nil, domain.StorageError(fmt.Sprintf("stored employee %s is invalid", s.ID), err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterate payroll employees", err)
	}

	payroll, err := domain.NewPayroll(rec.Period, employees)
	if err != nil {
		return nil, domain.StorageError("stored payroll is invalid", err)
	}
	return payroll, nil
}

// Record returns the stored header for period.
func (r *PayrollRepository) Record(ctx context.Context, period domain.Period) (*PayrollRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, recordSelect+` WHERE year = $1 AND month = $2`,
		period.Year, period.Month))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("query payroll", err)
	}
	return rec, nil
}

// List returns every stored payroll header, most recent period first.
func (r *PayrollRepository) List(ctx context.Context) ([]*PayrollRecord, error) {
	rows, err := r.db.QueryContext(ctx, recordSelect+` ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, domain.StorageError("list payrolls", err)
	}
	defer rows.Close()

	var out []*PayrollRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.StorageError("scan payroll", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterate payrolls", err)
	}
	return out, nil
}

// Delete removes the payroll stored for period.
func (r *PayrollRepository) Delete(ctx context.Context, period domain.Period) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("begin transaction", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM payrolls WHERE year = $1 AND month = $2`,
		period.Year, period.Month).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return domain.StorageError("look up payroll", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payroll_employees WHERE payroll_id = $1`, id); err != nil {
		return domain.StorageError("delete payroll employees", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payrolls WHERE id = $1`, id); err != nil {
		return domain.StorageError("delete payroll", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.StorageError("commit delete", err)
	}
	return nil
}

// Exists reports whether a payroll is stored for period.
func (r *PayrollRepository) Exists(ctx context.Context, period domain.Period) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payrolls WHERE year = $1 AND month = $2`,
		period.Year, period.Month,
	).Scan(&n)
	if err != nil {
		return false, domain.StorageError("check payroll", err)
	}
	return n > 0, nil
}

const recordSelect = `
	SELECT id, month, year, currency, total_gross, total_net, employee_count,
		run_id, source, created_at, updated_at
	FROM payrolls`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*PayrollRecord, error) {
	var (
		rec         PayrollRecord
		id          string
		gross, net  string
		month, year int
	)
	err := row.Scan(&id, &month, &year, &rec.Currency, &gross, &net, &rec.EmployeeCount,
		&rec.RunID, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("payroll id %q: %w", id, err)
	}
	if rec.Period, err = domain.NewPeriod(month, year); err != nil {
		return nil, err
	}
	if rec.TotalGross, err = domain.MoneyFromString(gross, rec.Currency); err != nil {
		return nil, err
	}
	if rec.TotalNet, err = domain.MoneyFromString(net, rec.Currency); err != nil {
		return nil, err
	}
	return &rec, nil
}

func amount(m domain.Money) string {
	return m.Amount().StringFixed(2)
}
