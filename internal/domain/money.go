package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency tag used when none is configured.
const DefaultCurrency = "BRL"

// moneyScale is the number of decimal places every amount is quantized to.
const moneyScale = 2

// Money is an exact amount with two decimal places and a currency tag.
// The zero value is zero in DefaultCurrency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney quantizes amount to cents (half away from zero).
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		amount:   amount.Round(moneyScale),
		currency: normalizeCurrency(currency),
	}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: normalizeCurrency(currency)}
}

// MoneyFromString builds Money from a plain decimal string such as "8500.00".
func MoneyFromString(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, InvalidOperationError(fmt.Sprintf("invalid decimal amount %q", value), err)
	}
	return NewMoney(d, currency), nil
}

// MustMoney is MoneyFromString for constants and tests; it panics on bad input.
func MustMoney(value string) Money {
	m, err := MoneyFromString(value, DefaultCurrency)
	if err != nil {
		panic(err)
	}
	return m
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// Amount returns the underlying decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency tag.
func (m Money) Currency() string { return normalizeCurrency(m.currency) }

// Float64 returns the amount as a float for display purposes only.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

func (m Money) sameCurrency(o Money, op string) error {
	if m.Currency() != o.Currency() {
		return InvalidOperationError(
			fmt.Sprintf("cannot %s %s and %s amounts", op, m.Currency(), o.Currency()), nil)
	}
	return nil
}

// Add returns m + o. Both operands must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o, "add"); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Add(o.amount), m.Currency()), nil
}

// Sub returns m - o. Both operands must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o, "subtract"); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(o.amount), m.Currency()), nil
}

// Mul multiplies by a scalar.
func (m Money) Mul(factor decimal.Decimal) Money {
	return NewMoney(m.amount.Mul(factor), m.Currency())
}

// Div divides by a scalar. Dividing by zero is an invalid operation.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, InvalidOperationError("division by zero", nil)
	}
	return NewMoney(m.amount.DivRound(divisor, moneyScale+4), m.Currency()), nil
}

// Cmp compares amounts; currencies are not considered.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// Equal reports whether amount and currency are the same.
func (m Money) Equal(o Money) bool {
	return m.Currency() == o.Currency() && m.amount.Equal(o.amount)
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// String returns a diagnostic form like "BRL 8500.00".
func (m Money) String() string {
	return m.Currency() + " " + m.amount.StringFixed(moneyScale)
}

// Format renders the amount in the document locale: "." groups thousands and
// "," separates cents, e.g. "8.500,00" or "-1.234,56".
func (m Money) Format() string {
	fixed := m.amount.Abs().StringFixed(moneyScale)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if m.amount.IsNegative() {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// SeparatorMode decides how a token with a single separator followed by exactly
// three digits ("1.234", "1,234") is read.
type SeparatorMode string

const (
	SeparatorDecimal   SeparatorMode = "decimal"
	SeparatorThousands SeparatorMode = "thousands"
)

// ParseOptions tunes ParseMoney.
type ParseOptions struct {
	Currency  string
	Symbol    string // extra leading currency symbol accepted besides the built-in ones
	Ambiguous SeparatorMode
}

// CurrencySymbols are the leading symbols always accepted by ParseMoney.
var CurrencySymbols = []string{"R$", "US$", "$", "€"}

// ParseMoney parses a locale-formatted amount: optional sign, optional leading
// currency symbol, "." thousands groups and at most one "," followed by one or
// two decimal digits. Anything else is rejected with an invalid-operation error.
func ParseMoney(token string, opts ParseOptions) (Money, error) {
	body, negative := stripSign(strings.TrimSpace(token))
	if stripped, ok := stripSymbol(body, opts.Symbol); ok {
		body = strings.TrimSpace(stripped)
		if !negative {
			body, negative = stripSign(body)
		}
	}

	value, err := parseLocaleDigits(body, opts.Ambiguous)
	if err != nil {
		return Money{}, InvalidOperationError(fmt.Sprintf("malformed amount %q", token), err)
	}
	if negative {
		value = value.Neg()
	}
	return NewMoney(value, opts.Currency), nil
}

func stripSign(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "-"):
		return strings.TrimSpace(s[1:]), true
	case strings.HasPrefix(s, "+"):
		return strings.TrimSpace(s[1:]), false
	}
	return s, false
}

func stripSymbol(s, extra string) (string, bool) {
	if extra != "" && strings.HasPrefix(s, extra) {
		return s[len(extra):], true
	}
	for _, sym := range CurrencySymbols {
		if strings.HasPrefix(s, sym) {
			return s[len(sym):], true
		}
	}
	return s, false
}

func parseLocaleDigits(s string, mode SeparatorMode) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("unexpected character %q", r)
		}
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	if commas > 1 {
		return decimal.Zero, fmt.Errorf("decimal separator appears %d times", commas)
	}

	intPart, frac, hasFrac := strings.Cut(s, ",")
	if strings.Contains(frac, ".") {
		return decimal.Zero, fmt.Errorf("thousands separator after decimal separator")
	}

	// A lone separator followed by exactly three digits is ambiguous.
	if commas+dots == 1 {
		tail := frac
		if !hasFrac {
			_, tail, _ = strings.Cut(intPart, ".")
		}
		if len(tail) == 3 {
			head := strings.Split(strings.ReplaceAll(s, ",", "."), ".")[0]
			if head == "" {
				return decimal.Zero, fmt.Errorf("missing integer digits")
			}
			if mode == SeparatorThousands {
				return decimal.NewFromString(head + tail)
			}
			return decimal.NewFromString(head + "." + tail)
		}
	}

	if hasFrac && (len(frac) < 1 || len(frac) > 2) {
		return decimal.Zero, fmt.Errorf("expected 1 or 2 decimal digits, got %d", len(frac))
	}

	groups := strings.Split(intPart, ".")
	if groups[0] == "" {
		return decimal.Zero, fmt.Errorf("missing integer digits")
	}
	if len(groups) > 1 {
		if len(groups[0]) > 3 {
			return decimal.Zero, fmt.Errorf("leading group %q longer than 3 digits", groups[0])
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return decimal.Zero, fmt.Errorf("thousands group %q is not 3 digits", g)
			}
		}
	}

	digits := strings.Join(groups, "")
	if hasFrac {
		digits += "." + frac
	}
	return decimal.NewFromString(digits)
}
