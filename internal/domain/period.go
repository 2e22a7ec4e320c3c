package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Plausible year range for a payroll reference period.
const (
	MinPeriodYear = 2000
	MaxPeriodYear = 2100
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Period is a payroll reference month.
type Period struct {
	Month int
	Year  int
}

// NewPeriod validates month and year.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ValidationError(fmt.Sprintf("month must be between 1 and 12, got %d", month), nil)
	}
	if year < MinPeriodYear || year > MaxPeriodYear {
		return Period{}, ValidationError(
			fmt.Sprintf("year must be between %d and %d, got %d", MinPeriodYear, MaxPeriodYear, year), nil)
	}
	return Period{Month: month, Year: year}, nil
}

// ParsePeriod parses "MM/YYYY" (or "M/YYYY").
func ParsePeriod(s string) (Period, error) {
	monthStr, yearStr, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || len(monthStr) == 0 || len(monthStr) > 2 || len(yearStr) != 4 ||
		!isDigits(monthStr) || !isDigits(yearStr) {
		return Period{}, ValidationError(fmt.Sprintf("period must be MM/YYYY, got %q", s), nil)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return Period{}, ValidationError(fmt.Sprintf("invalid month in %q", s), err)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Period{}, ValidationError(fmt.Sprintf("invalid year in %q", s), err)
	}
	return NewPeriod(month, year)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsZero reports whether p is the unset Period.
func (p Period) IsZero() bool { return p.Month == 0 && p.Year == 0 }

// String returns "MM/YYYY".
func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

// MonthName returns the English month name.
func (p Period) MonthName() string {
	if p.Month < 1 || p.Month > 12 {
		return ""
	}
	return monthNames[p.Month-1]
}

// LongName returns e.g. "September 2025".
func (p Period) LongName() string {
	return fmt.Sprintf("%s %d", p.MonthName(), p.Year)
}

// Compare returns -1, 0 or +1 ordering p against o chronologically.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year != o.Year:
		if p.Year < o.Year {
			return -1
		}
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }
func (p Period) After(o Period) bool  { return p.Compare(o) > 0 }
func (p Period) Equal(o Period) bool  { return p.Compare(o) == 0 }

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Previous returns the preceding month.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input leaves p unset.
func (p *Period) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
