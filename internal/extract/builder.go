package extract

import (
	"fmt"

	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/parser"
)

// builder collects employee records in detection order and resolves repeated
// identifiers according to the duplicate policy.
type builder struct {
	policy    DuplicatePolicy
	records   []parser.BlockResult
	index     map[string]int
	anomalies []domain.Anomaly
	resolved  int
}

func newBuilder(policy DuplicatePolicy) *builder {
	if policy == "" {
		policy = DuplicateLast
	}
	return &builder{
		policy: policy,
		index:  make(map[string]int),
	}
}

// add records r. A repeated identifier is resolved in place and reported as a
// duplicate_identifier warning.
func (b *builder) add(r parser.BlockResult) {
	id := r.Employee.ID
	i, seen := b.index[id]
	if !seen {
		b.index[id] = len(b.records)
		b.records = append(b.records, r)
		return
	}

	b.resolved++
	prev := b.records[i]
	action := "kept first occurrence"
	if b.policy == DuplicateLast {
		b.records[i] = r
		action = "replaced earlier occurrence"
	}

	b.anomalies = append(b.anomalies, domain.Anomaly{
		Kind:       domain.AnomalyDuplicateID,
		Severity:   domain.SeverityWarning,
		EmployeeID: id,
		Page:       r.Block.Page,
		Line:       r.Block.Start(),
		Message: fmt.Sprintf("identifier repeated (page %d line %d, first seen page %d line %d), %s",
			r.Block.Page, r.Block.Start(), prev.Block.Page, prev.Block.Start(), action),
	})
}

func (b *builder) len() int { return len(b.records) }

func (b *builder) employees() []domain.Employee {
	out := make([]domain.Employee, len(b.records))
	for i, r := range b.records {
		out[i] = r.Employee
	}
	return out
}

// build freezes the collected records into an aggregate.
func (b *builder) build(period domain.Period) (*domain.Payroll, error) {
	return domain.NewPayroll(period, b.employees())
}
