package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultIdentifierDigits is the width of an employee identifier.
const DefaultIdentifierDigits = 6

// Employee is one person's payroll entry for a period.
type Employee struct {
	ID        string
	Name      string
	Position  string
	Gross     Money
	Net       Money
	Page      int
	NoPayment bool // no monetary value was found in the block
}

// NewEmployee validates and builds an Employee.
func NewEmployee(id, name, position string, gross, net Money, page int) (Employee, error) {
	if id == "" || strings.IndexFunc(id, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return Employee{}, ValidationError(fmt.Sprintf("employee identifier must be numeric, got %q", id), nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, ValidationError(fmt.Sprintf("employee %s has no name", id), nil)
	}
	position = strings.TrimSpace(position)
	if position == "" {
		return Employee{}, ValidationError(fmt.Sprintf("employee %s has no position", id), nil)
	}
	if page < 1 {
		return Employee{}, ValidationError(fmt.Sprintf("employee %s has invalid page %d", id, page), nil)
	}
	if gross.Currency() != net.Currency() {
		return Employee{}, ValidationError(
			fmt.Sprintf("employee %s mixes %s and %s", id, gross.Currency(), net.Currency()), nil)
	}

	return Employee{
		ID:       id,
		Name:     name,
		Position: position,
		Gross:    gross,
		Net:      net,
		Page:     page,
	}, nil
}

// Deductions returns gross minus net.
func (e Employee) Deductions() Money {
	return NewMoney(e.Gross.Amount().Sub(e.Net.Amount()), e.Gross.Currency())
}

// DeductionPercentage returns deductions as a percentage of gross, rounded to
// two places. Zero gross yields zero.
func (e Employee) DeductionPercentage() decimal.Decimal {
	if e.Gross.IsZero() {
		return decimal.Zero
	}
	return e.Deductions().Amount().
		Div(e.Gross.Amount()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// HasPayment reports whether a positive net amount is due.
func (e Employee) HasPayment() bool {
	return e.Net.IsPositive()
}

// NetExceedsGross flags the data-quality case net > gross.
func (e Employee) NetExceedsGross() bool {
	return e.Net.Cmp(e.Gross) > 0
}
