package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spherical/payroll-extract/internal/domain"
)

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, bold(strings.Join(headers, "\t")))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// EmployeeTable prints one row per employee in payroll order.
func EmployeeTable(p *domain.Payroll) {
	rows := make([][]string, 0, p.Len())
	for _, e := range p.All() {
		gross, net := e.Gross.Format(), e.Net.Format()
		if e.NoPayment {
			gross, net = yellow("-"), yellow("-")
		}
		rows = append(rows, []string{e.ID, e.Name, e.Position, gross, net, fmt.Sprint(e.Page)})
	}
	Table([]string{"ID", "Name", "Position", "Gross", "Net", "Page"}, rows)
}

// SummaryTable prints payroll totals.
func SummaryTable(s domain.Summary, symbol string) {
	money := func(m domain.Money) string {
		if symbol == "" {
			return m.Format()
		}
		return symbol + " " + m.Format()
	}
	Table([]string{"Metric", "Value"}, [][]string{
		{"Period", s.Period.String()},
		{"Employees", fmt.Sprint(s.EmployeeCount)},
		{"With payment", fmt.Sprint(s.WithPayment)},
		{"Without payment", fmt.Sprint(s.WithoutPayment)},
		{"Total gross", money(s.TotalGross)},
		{"Total net", money(s.TotalNet)},
		{"Total deductions", money(s.TotalDeductions)},
		{"Average gross", money(s.AverageGross)},
		{"Average net", money(s.AverageNet)},
	})
}

// ReportTable prints the run diagnostics. Anomalies and rejected tokens are
// listed individually only in verbose mode.
func ReportTable(r domain.Report) {
	period := "-"
	if r.Period != nil {
		period = fmt.Sprintf("%s (%s, page %d line %d)", r.Period.Period, r.Period.Strategy, r.Period.Page, r.Period.Line)
		if r.Period.Strategy == domain.StrategyOverride {
			period = fmt.Sprintf("%s (%s)", r.Period.Period, r.Period.Strategy)
		}
	}
	cached := "no"
	if r.CacheHit {
		cached = cyan("yes")
	}

	Table([]string{"Diagnostic", "Value"}, [][]string{
		{"Run", r.RunID},
		{"Source", r.Source},
		{"Pages", fmt.Sprint(r.Pages)},
		{"Lines scanned", fmt.Sprint(r.LinesScanned)},
		{"Blocks found", fmt.Sprint(r.BlocksFound)},
		{"Duplicates resolved", fmt.Sprint(r.DuplicatesResolved)},
		{"Period", period},
		{"Anomalies", countCell(r.AnomalyCount(), red)},
		{"Warnings", countCell(r.WarningCount(), yellow)},
		{"Rejected tokens", countCell(len(r.Rejections), yellow)},
		{"Cache hit", cached},
		{"Duration", FormatDuration(r.Duration)},
	})

	if !verboseFlag {
		return
	}
	if len(r.Anomalies) > 0 {
		Section("Anomalies")
		rows := make([][]string, 0, len(r.Anomalies))
		for _, a := range r.Anomalies {
			rows = append(rows, []string{string(a.Severity), string(a.Kind), a.EmployeeID, location(a.Page, a.Line), a.Message})
		}
		Table([]string{"Severity", "Kind", "Employee", "Where", "Message"}, rows)
	}
	if len(r.Rejections) > 0 {
		Section("Rejected tokens")
		rows := make([][]string, 0, len(r.Rejections))
		for _, rj := range r.Rejections {
			rows = append(rows, []string{rj.Token, location(rj.Page, rj.Line), rj.Reason})
		}
		Table([]string{"Token", "Where", "Reason"}, rows)
	}
}

func countCell(n int, paint func(...interface{}) string) string {
	if n == 0 {
		return "0"
	}
	return paint(n)
}

func location(page, line int) string {
	return fmt.Sprintf("p%d:l%d", page, line)
}

// FormatDuration formats a duration in a human-readable way. Durations under a
// second keep millisecond precision.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
