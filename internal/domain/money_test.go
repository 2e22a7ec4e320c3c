package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney_Valid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"thousands and cents", "8.500,00", "8500.00"},
		{"no thousands", "500,00", "500.00"},
		{"single decimal digit", "12,5", "12.50"},
		{"millions", "1.234.567,89", "1234567.89"},
		{"ungrouped integer part", "123456,78", "123456.78"},
		{"currency symbol", "R$ 8.500,00", "8500.00"},
		{"symbol without space", "R$1.000,10", "1000.10"},
		{"negative", "-1.234,56", "-1234.56"},
		{"negative before symbol", "-R$ 10,00", "-10.00"},
		{"sign after symbol", "R$ -10,00", "-10.00"},
		{"explicit plus", "+3,00", "3.00"},
		{"thousands only", "1.234.567", "1234567.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMoney(tt.token, ParseOptions{})
			require.NoError(t, err)
			assert.True(t, m.Amount().Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", m.Amount(), tt.want)
			assert.Equal(t, DefaultCurrency, m.Currency())
		})
	}
}

func TestParseMoney_Rejects(t *testing.T) {
	tokens := []string{
		"1,234,56",    // decimal separator twice
		"1,23.45",     // thousands after decimal
		"12.34,56",    // short thousands group
		"1234.567,00", // leading group too long
		"1,2345",      // too many decimals
		",50",         // no integer digits
		"1.5",         // dot is not a decimal separator
		"abc",
		"",
	}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			_, err := ParseMoney(token, ParseOptions{})
			require.Error(t, err)
			assert.True(t, IsType(err, ErrorTypeInvalidOperation))
		})
	}
}

func TestParseMoney_AmbiguousSeparator(t *testing.T) {
	m, err := ParseMoney("1.234", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.23", m.Amount().StringFixed(2), "decimal reading is the default")

	m, err = ParseMoney("1,234", ParseOptions{Ambiguous: SeparatorThousands})
	require.NoError(t, err)
	assert.Equal(t, "1234.00", m.Amount().StringFixed(2))

	m, err = ParseMoney("1.234", ParseOptions{Ambiguous: SeparatorThousands})
	require.NoError(t, err)
	assert.Equal(t, "1234.00", m.Amount().StringFixed(2))
}

func TestParseMoney_ConfiguredSymbol(t *testing.T) {
	m, err := ParseMoney("Kz 1.000,00", ParseOptions{Symbol: "Kz", Currency: "aoa"})
	require.NoError(t, err)
	assert.Equal(t, "AOA", m.Currency())
	assert.Equal(t, "1000.00", m.Amount().StringFixed(2))
}

func TestMoney_FormatRoundTrip(t *testing.T) {
	values := []string{"0", "0.5", "1", "12.34", "999.99", "1000", "8500", "6800.00", "1234567.89", "-42.10", "-1000000"}

	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			m := MustMoney(v)
			parsed, err := ParseMoney(m.Format(), ParseOptions{})
			require.NoError(t, err, "format %q", m.Format())
			assert.True(t, parsed.Equal(m), "%s != %s", parsed, m)
		})
	}
}

func TestMoney_Format(t *testing.T) {
	assert.Equal(t, "8.500,00", MustMoney("8500").Format())
	assert.Equal(t, "0,05", MustMoney("0.05").Format())
	assert.Equal(t, "123,00", MustMoney("123").Format())
	assert.Equal(t, "1.234.567,89", MustMoney("1234567.89").Format())
	assert.Equal(t, "-1.234,56", MustMoney("-1234.56").Format())
	assert.Equal(t, "BRL 8500.00", MustMoney("8500").String())
}

func TestMoney_Quantization(t *testing.T) {
	assert.Equal(t, "10.13", MustMoney("10.125").Amount().StringFixed(2))
	assert.Equal(t, "10.12", MustMoney("10.124").Amount().StringFixed(2))
	assert.Equal(t, "-10.13", MustMoney("-10.125").Amount().StringFixed(2))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("8500.00")
	b := MustMoney("6800.00")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustMoney("15300")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustMoney("1700")))

	assert.True(t, a.Mul(decimal.NewFromFloat(0.1)).Equal(MustMoney("850")))

	third, err := MustMoney("10").Div(decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, "3.33", third.Amount().StringFixed(2))

	_, err = a.Div(decimal.Zero)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeInvalidOperation))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	brl := MustMoney("1")
	usd := NewMoney(decimal.NewFromInt(1), "USD")

	_, err := brl.Add(usd)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeInvalidOperation))

	_, err = brl.Sub(usd)
	require.Error(t, err)
	assert.False(t, brl.Equal(usd))
}

func TestMoney_ZeroValue(t *testing.T) {
	var m Money
	assert.True(t, m.IsZero())
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.True(t, m.Equal(Zero("brl")))
	assert.Equal(t, "0,00", m.Format())
}
