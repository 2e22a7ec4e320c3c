package parser

import (
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/spherical/payroll-extract/internal/domain"
)

// DefaultStrategies is the period detection priority, highest first. The
// configured override comes last.
func DefaultStrategies() []domain.PeriodStrategy {
	return []domain.PeriodStrategy{
		domain.StrategyLabel,
		domain.StrategyMonthName,
		domain.StrategyIssueDate,
		domain.StrategyOverride,
	}
}

var fullMonths = map[string]int{
	"janeiro": 1, "fevereiro": 2, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
	"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var shortMonths = map[string]int{
	"jan": 1, "fev": 2, "feb": 2, "mar": 3, "abr": 4, "apr": 4, "mai": 5,
	"jun": 6, "jul": 7, "ago": 8, "aug": 8, "set": 9, "sep": 9, "sept": 9,
	"out": 10, "oct": 10, "nov": 11, "dez": 12, "dec": 12,
}

// MonthNumber resolves a lowercase, accent-free month name or abbreviation.
func MonthNumber(name string) (int, bool) {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	if m, ok := fullMonths[name]; ok {
		return m, true
	}
	m, ok := shortMonths[name]
	return m, ok
}

var (
	periodLabels = `periodo de referencia|mes de referencia|reference period|pay period|competencia|referencia|mes/ano`

	labelRe = regexp.MustCompile(`\b(?:` + periodLabels + `)\b\s*[:\-]?\s*` +
		`(?:(\d{1,2})\s*/\s*(\d{4})|([a-z]{3,9})\.?(?:\s+de|\s*/|\s*-)?\s*(\d{4}))\b`)

	monthNameRe = regexp.MustCompile(`\b(` + alternation(fullMonths) + `)\b(?:\s+de|\s*/|\s*-)?\s*(\d{4})\b`)

	issueDateRe = regexp.MustCompile(`\b(?:data de emissao|emissao|issue date|issued)\b\s*[:\-]?\s*(?:em\s+)?` +
		`(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

func alternation(names map[string]int) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	return strings.Join(keys, "|")
}

// PeriodDetector finds the payroll reference period using a fixed priority
// list of strategies. The first strategy that succeeds wins.
type PeriodDetector struct {
	strategies []domain.PeriodStrategy
	override   domain.Period
	scanPages  int
	logger     *domain.Logger
}

// NewPeriodDetector creates a detector from the parser options.
func NewPeriodDetector(opts Options, logger *domain.Logger) *PeriodDetector {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &PeriodDetector{
		strategies: strategies,
		override:   opts.PeriodOverride,
		scanPages:  opts.PeriodScanPages,
		logger:     logger.WithPrefix("period"),
	}
}

// Detect runs the strategies in priority order over lines.
func (d *PeriodDetector) Detect(lines iter.Seq[domain.TextLine]) (domain.PeriodDetection, error) {
	for _, strategy := range d.strategies {
		det, ok := d.run(strategy, lines)
		if !ok {
			d.logger.Debug("Strategy %s found no period", strategy)
			continue
		}
		d.logger.Info("Period %s detected by %s strategy (page %d)", det.Period, det.Strategy, det.Page)
		return det, nil
	}
	return domain.PeriodDetection{}, domain.PeriodNotDetectedError(
		"no reference period found in document and no override configured", nil)
}

func (d *PeriodDetector) run(strategy domain.PeriodStrategy, lines iter.Seq[domain.TextLine]) (domain.PeriodDetection, bool) {
	switch strategy {
	case domain.StrategyLabel:
		return scanLines(lines, strategy, 0, matchLabel)
	case domain.StrategyMonthName:
		return scanLines(lines, strategy, d.scanPages, matchMonthName)
	case domain.StrategyIssueDate:
		return scanLines(lines, strategy, 0, matchIssueDate)
	case domain.StrategyOverride:
		if d.override.IsZero() {
			return domain.PeriodDetection{}, false
		}
		return domain.PeriodDetection{
			Period:   d.override,
			Strategy: domain.StrategyOverride,
			Source:   "configured override",
		}, true
	}
	return domain.PeriodDetection{}, false
}

type periodMatcher func(folded string) (domain.Period, bool)

// scanLines returns the first line, in document order, on which match finds a
// valid period. maxPages of 0 means no page limit.
func scanLines(lines iter.Seq[domain.TextLine], strategy domain.PeriodStrategy, maxPages int, match periodMatcher) (domain.PeriodDetection, bool) {
	for line := range lines {
		if maxPages > 0 && line.Page > maxPages {
			break
		}
		if p, ok := match(line.Folded); ok {
			return domain.PeriodDetection{
				Period:   p,
				Strategy: strategy,
				Page:     line.Page,
				Line:     line.Index,
				Source:   line.Text,
			}, true
		}
	}
	return domain.PeriodDetection{}, false
}

func matchLabel(folded string) (domain.Period, bool) {
	for _, m := range labelRe.FindAllStringSubmatch(folded, -1) {
		if m[1] != "" {
			if p, ok := toPeriod(atoi(m[1]), m[2]); ok {
				return p, true
			}
			continue
		}
		if month, ok := MonthNumber(m[3]); ok {
			if p, ok := toPeriod(month, m[4]); ok {
				return p, true
			}
		}
	}
	return domain.Period{}, false
}

func matchMonthName(folded string) (domain.Period, bool) {
	for _, m := range monthNameRe.FindAllStringSubmatch(folded, -1) {
		if p, ok := toPeriod(fullMonths[m[1]], m[2]); ok {
			return p, true
		}
	}
	return domain.Period{}, false
}

func matchIssueDate(folded string) (domain.Period, bool) {
	for _, m := range issueDateRe.FindAllStringSubmatch(folded, -1) {
		day := atoi(m[1])
		if day < 1 || day > 31 {
			continue
		}
		if p, ok := toPeriod(atoi(m[2]), m[3]); ok {
			return p, true
		}
	}
	return domain.Period{}, false
}

func toPeriod(month int, year string) (domain.Period, bool) {
	p, err := domain.NewPeriod(month, atoi(year))
	return p, err == nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
