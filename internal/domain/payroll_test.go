package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEmployee(t *testing.T, id, name, position, gross, net string) Employee {
	t.Helper()
	e, err := NewEmployee(id, name, position, MustMoney(gross), MustMoney(net), 1)
	require.NoError(t, err)
	return e
}

func samplePayroll(t *testing.T) *Payroll {
	t.Helper()
	p, err := NewPayroll(Period{Month: 9, Year: 2025}, []Employee{
		mustEmployee(t, "123456", "JOHN DOE", "Senior Developer", "8500", "6800"),
		mustEmployee(t, "234567", "ANA SILVA", "Analyst", "4000", "3300"),
		mustEmployee(t, "345678", "BRUNO COSTA", "analyst", "0", "0"),
	})
	require.NoError(t, err)
	return p
}

func TestNewEmployee_Validation(t *testing.T) {
	gross, net := MustMoney("1"), MustMoney("1")

	_, err := NewEmployee("12a456", "JOHN", "Dev", gross, net, 1)
	assert.True(t, IsType(err, ErrorTypeValidation))

	_, err = NewEmployee("123456", " ", "Dev", gross, net, 1)
	assert.Error(t, err)

	_, err = NewEmployee("123456", "JOHN", "", gross, net, 1)
	assert.Error(t, err)

	_, err = NewEmployee("123456", "JOHN", "Dev", gross, net, 0)
	assert.Error(t, err)

	_, err = NewEmployee("123456", "JOHN", "Dev", gross, NewMoney(decimal.NewFromInt(1), "USD"), 1)
	assert.Error(t, err)
}

func TestEmployee_Derived(t *testing.T) {
	e := mustEmployee(t, "123456", "JOHN DOE", "Senior Developer", "8500", "6800")

	assert.True(t, e.Deductions().Equal(MustMoney("1700")))
	assert.Equal(t, "20", e.DeductionPercentage().String())
	assert.True(t, e.HasPayment())
	assert.False(t, e.NetExceedsGross())

	odd := mustEmployee(t, "111111", "X Y", "Z", "100", "150")
	assert.True(t, odd.NetExceedsGross())

	unpaid := mustEmployee(t, "222222", "X Y", "Z", "0", "0")
	assert.False(t, unpaid.HasPayment())
	assert.True(t, unpaid.DeductionPercentage().IsZero())
}

func TestNewPayroll_RejectsDuplicates(t *testing.T) {
	e := mustEmployee(t, "123456", "JOHN DOE", "Dev", "1", "1")
	_, err := NewPayroll(Period{Month: 9, Year: 2025}, []Employee{e, e})
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeValidation))
}

func TestNewPayroll_RejectsInvalidPeriod(t *testing.T) {
	_, err := NewPayroll(Period{Month: 13, Year: 2025}, nil)
	require.Error(t, err)
}

func TestPayroll_Totals(t *testing.T) {
	p := samplePayroll(t)

	assert.Equal(t, 3, p.Len())
	assert.True(t, p.TotalGross().Equal(MustMoney("12500")))
	assert.True(t, p.TotalNet().Equal(MustMoney("10100")))
	assert.True(t, p.TotalDeductions().Equal(MustMoney("2400")))
	assert.True(t, p.AverageGross().Equal(MustMoney("4166.67")))
	assert.True(t, p.AverageNet().Equal(MustMoney("3366.67")))

	s := p.Summary()
	assert.Equal(t, 3, s.EmployeeCount)
	assert.Equal(t, 2, s.WithPayment)
	assert.Equal(t, 1, s.WithoutPayment)
	assert.Equal(t, Period{Month: 9, Year: 2025}, s.Period)
}

func TestPayroll_Queries(t *testing.T) {
	p := samplePayroll(t)

	e, ok := p.Employee("234567")
	require.True(t, ok)
	assert.Equal(t, "ANA SILVA", e.Name)

	_, ok = p.Employee("999999")
	assert.False(t, ok)

	assert.Len(t, p.ByPosition("ANALYST"), 2)
	assert.Len(t, p.WithoutPayment(), 1)

	byGross := p.SortedByGross()
	assert.Equal(t, "123456", byGross[0].ID)
	assert.Equal(t, "345678", byGross[2].ID)

	byName := p.SortedByName()
	assert.Equal(t, "ANA SILVA", byName[0].Name)

	// detection order is untouched by sorting
	var ids []string
	for _, e := range p.All() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"123456", "234567", "345678"}, ids)
}

func TestPayroll_IsolatedFromCallers(t *testing.T) {
	employees := []Employee{mustEmployee(t, "123456", "JOHN DOE", "Dev", "10", "5")}
	p, err := NewPayroll(Period{Month: 1, Year: 2025}, employees)
	require.NoError(t, err)

	employees[0].Name = "CHANGED"
	got := p.Employees()
	got[0].Name = "ALSO CHANGED"

	e, _ := p.Employee("123456")
	assert.Equal(t, "JOHN DOE", e.Name)
}

func TestPayroll_EmptyAverages(t *testing.T) {
	p, err := NewPayroll(Period{Month: 1, Year: 2025}, nil)
	require.NoError(t, err)
	assert.True(t, p.AverageGross().IsZero())
	assert.Equal(t, 0, p.Summary().WithoutPayment)
}

func TestPayroll_Snapshot(t *testing.T) {
	p := samplePayroll(t)
	snap := p.Snapshot()

	assert.Equal(t, "09/2025", snap.Period)
	assert.Equal(t, "8500.00", snap.Employees[0].Gross)

	back, err := FromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, snap, back.Snapshot())
	assert.True(t, back.TotalGross().Equal(p.TotalGross()))
}

func TestDomainError_Classification(t *testing.T) {
	cause := errors.New("boom")
	err := DocumentUnreadableError("cannot open", cause)

	assert.Equal(t, "[document_unreadable] cannot open: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeDocumentUnreadable, TypeOf(err))

	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, IsType(wrapped, ErrorTypeDocumentUnreadable))
	assert.False(t, IsType(cause, ErrorTypeDocumentUnreadable))
	assert.Equal(t, ErrorType(""), TypeOf(cause))
}
