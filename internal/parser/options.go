package parser

import (
	"github.com/spherical/payroll-extract/internal/domain"
)

// Options tunes the parsers. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// IdentifierDigits is the exact width of an employee identifier token.
	IdentifierDigits int
	// Currency tags every parsed amount.
	Currency string
	// CurrencySymbol is an extra leading symbol accepted before amounts.
	CurrencySymbol string
	// Ambiguous decides how "1.234" and "1,234" are read.
	Ambiguous domain.SeparatorMode
	// PeriodOverride is used only when no strategy finds a period in the text.
	PeriodOverride domain.Period
	// PeriodScanPages limits the month-name scan to the first N pages; 0 scans all.
	PeriodScanPages int
	// Strategies is the period detection priority order.
	Strategies []domain.PeriodStrategy
}

// DefaultOptions returns the standard parser configuration.
func DefaultOptions() Options {
	return Options{
		IdentifierDigits: domain.DefaultIdentifierDigits,
		Currency:         domain.DefaultCurrency,
		Ambiguous:        domain.SeparatorDecimal,
		PeriodScanPages:  2,
		Strategies:       DefaultStrategies(),
	}
}

// ParseOptions returns the money grammar settings.
func (o Options) ParseOptions() domain.ParseOptions {
	return domain.ParseOptions{
		Currency:  o.Currency,
		Symbol:    o.CurrencySymbol,
		Ambiguous: o.Ambiguous,
	}
}
