package domain

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Payroll is the immutable result of one extraction: a period and its
// employees in detection order, unique by identifier.
type Payroll struct {
	period    Period
	currency  string
	employees []Employee
	index     map[string]int
}

// NewPayroll validates identifier uniqueness and a single currency.
func NewPayroll(period Period, employees []Employee) (*Payroll, error) {
	if _, err := NewPeriod(period.Month, period.Year); err != nil {
		return nil, err
	}

	currency := DefaultCurrency
	if len(employees) > 0 {
		currency = employees[0].Gross.Currency()
	}

	index := make(map[string]int, len(employees))
	for i, e := range employees {
		if _, dup := index[e.ID]; dup {
			return nil, ValidationError(fmt.Sprintf("duplicate employee identifier %s", e.ID), nil)
		}
		if e.Gross.Currency() != currency || e.Net.Currency() != currency {
			return nil, ValidationError(
				fmt.Sprintf("employee %s is not in %s", e.ID, currency), nil)
		}
		index[e.ID] = i
	}

	return &Payroll{
		period:    period,
		currency:  currency,
		employees: slices.Clone(employees),
		index:     index,
	}, nil
}

func (p *Payroll) Period() Period   { return p.period }
func (p *Payroll) Currency() string { return p.currency }
func (p *Payroll) Len() int         { return len(p.employees) }

// Employees returns a copy of the records in detection order.
func (p *Payroll) Employees() []Employee {
	return slices.Clone(p.employees)
}

// All iterates records in detection order.
func (p *Payroll) All() iter.Seq2[int, Employee] {
	return func(yield func(int, Employee) bool) {
		for i, e := range p.employees {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Employee looks a record up by identifier.
func (p *Payroll) Employee(id string) (Employee, bool) {
	i, ok := p.index[id]
	if !ok {
		return Employee{}, false
	}
	return p.employees[i], true
}

func (p *Payroll) filter(keep func(Employee) bool) []Employee {
	var out []Employee
	for _, e := range p.employees {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// WithPayment returns the records with a positive net amount.
func (p *Payroll) WithPayment() []Employee {
	return p.filter(Employee.HasPayment)
}

// WithoutPayment returns the records with no positive net amount.
func (p *Payroll) WithoutPayment() []Employee {
	return p.filter(func(e Employee) bool { return !e.HasPayment() })
}

// ByPosition matches positions case-insensitively.
func (p *Payroll) ByPosition(position string) []Employee {
	position = strings.TrimSpace(position)
	return p.filter(func(e Employee) bool { return strings.EqualFold(e.Position, position) })
}

// SortedByGross returns a copy ordered by gross amount, highest first.
func (p *Payroll) SortedByGross() []Employee {
	out := p.Employees()
	slices.SortStableFunc(out, func(a, b Employee) int { return b.Gross.Cmp(a.Gross) })
	return out
}

// SortedByName returns a copy ordered alphabetically by name.
func (p *Payroll) SortedByName() []Employee {
	out := p.Employees()
	slices.SortStableFunc(out, func(a, b Employee) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (p *Payroll) sum(pick func(Employee) Money) Money {
	total := decimal.Zero
	for _, e := range p.employees {
		total = total.Add(pick(e).Amount())
	}
	return NewMoney(total, p.currency)
}

func (p *Payroll) TotalGross() Money {
	return p.sum(func(e Employee) Money { return e.Gross })
}

func (p *Payroll) TotalNet() Money {
	return p.sum(func(e Employee) Money { return e.Net })
}

func (p *Payroll) TotalDeductions() Money {
	return p.sum(Employee.Deductions)
}

func (p *Payroll) average(total Money) Money {
	if len(p.employees) == 0 {
		return Zero(p.currency)
	}
	avg, _ := total.Div(decimal.NewFromInt(int64(len(p.employees))))
	return avg
}

func (p *Payroll) AverageGross() Money { return p.average(p.TotalGross()) }
func (p *Payroll) AverageNet() Money   { return p.average(p.TotalNet()) }

// Summary is a derived read-only view of the aggregate's totals.
type Summary struct {
	Period          Period
	EmployeeCount   int
	WithPayment     int
	WithoutPayment  int
	TotalGross      Money
	TotalNet        Money
	TotalDeductions Money
	AverageGross    Money
	AverageNet      Money
}

// Summary computes totals and counts.
func (p *Payroll) Summary() Summary {
	with := len(p.WithPayment())
	return Summary{
		Period:          p.period,
		EmployeeCount:   len(p.employees),
		WithPayment:     with,
		WithoutPayment:  len(p.employees) - with,
		TotalGross:      p.TotalGross(),
		TotalNet:        p.TotalNet(),
		TotalDeductions: p.TotalDeductions(),
		AverageGross:    p.AverageGross(),
		AverageNet:      p.AverageNet(),
	}
}

// PayrollSnapshot is a plain serializable copy of a Payroll. Amounts are kept as
// decimal strings.
type PayrollSnapshot struct {
	Period    string             `json:"period"`
	Currency  string             `json:"currency"`
	Employees []EmployeeSnapshot `json:"employees"`
}

// EmployeeSnapshot is the serializable form of an Employee.
type EmployeeSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	Gross     string `json:"gross"`
	Net       string `json:"net"`
	Page      int    `json:"page"`
	NoPayment bool   `json:"no_payment,omitempty"`
}

// Snapshot copies the aggregate into its serializable form.
func (p *Payroll) Snapshot() PayrollSnapshot {
	s := PayrollSnapshot{
		Period:    p.period.String(),
		Currency:  p.currency,
		Employees: make([]EmployeeSnapshot, 0, len(p.employees)),
	}
	for _, e := range p.employees {
		s.Employees = append(s.Employees, EmployeeSnapshot{
			ID:        e.ID,
			Name:      e.Name,
			Position:  e.Position,
			Gross:     e.Gross.Amount().StringFixed(moneyScale),
			Net:       e.Net.Amount().StringFixed(moneyScale),
			Page:      e.Page,
			NoPayment: e.NoPayment,
		})
	}
	return s
}

// FromSnapshot rebuilds and revalidates a Payroll.
func FromSnapshot(s PayrollSnapshot) (*Payroll, error) {
	period, err := ParsePeriod(s.Period)
	if err != nil {
		return nil, err
	}

	employees := make([]Employee, 0, len(s.Employees))
	for _, es := range s.Employees {
		e, err := es.Employee(s.Currency)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return NewPayroll(period, employees)
}

// Employee converts the snapshot back into a validated Employee.
func (es EmployeeSnapshot) Employee(currency string) (Employee, error) {
	gross, err := MoneyFromString(es.Gross, currency)
	if err != nil {
		return Employee{}, err
	}
	net, err := MoneyFromString(es.Net, currency)
	if err != nil {
		return Employee{}, err
	}
	e, err := NewEmployee(es.ID, es.Name, es.Position, gross, net, es.Page)
	if err != nil {
		return Employee{}, err
	}
	e.NoPayment = es.NoPayment
	return e, nil
}
