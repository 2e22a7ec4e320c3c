package extract

import (
	"fmt"
	"strings"

	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/parser"
)

// DuplicatePolicy decides which block wins when an identifier repeats.
type DuplicatePolicy string

const (
	// DuplicateLast keeps the later block's data in the earlier block's slot.
	DuplicateLast DuplicatePolicy = "last"
	// DuplicateFirst keeps the earlier block and ignores later ones.
	DuplicateFirst DuplicatePolicy = "first"
)

// ParseDuplicatePolicy parses "last" or "first"; empty means last.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DuplicateLast, nil
	case DuplicateLast, DuplicateFirst:
		return p, nil
	default:
		return "", domain.ValidationError(fmt.Sprintf("unknown duplicate policy %q (want last or first)", s), nil)
	}
}

// Options configures an extraction run.
type Options struct {
	Parser          parser.Options
	DuplicatePolicy DuplicatePolicy
	// MaxAnomalies fails the run when more anomalies are recorded; 0 disables
	// the limit. Warnings do not count.
	MaxAnomalies int
}

// DefaultOptions returns the standard extraction configuration.
func DefaultOptions() Options {
	return Options{
		Parser:          parser.DefaultOptions(),
		DuplicatePolicy: DuplicateLast,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.Parser.IdentifierDigits < 1 {
		return domain.ValidationError("identifier digits must be at least 1", nil)
	}
	if o.MaxAnomalies < 0 {
		return domain.ValidationError("max anomalies cannot be negative", nil)
	}
	if o.Parser.PeriodScanPages < 0 {
		return domain.ValidationError("period scan pages cannot be negative", nil)
	}
	if _, err := ParseDuplicatePolicy(string(o.DuplicatePolicy)); err != nil {
		return err
	}
	switch o.Parser.Ambiguous {
	case "", domain.SeparatorDecimal, domain.SeparatorThousands:
	default:
		return domain.ValidationError(fmt.Sprintf("unknown separator mode %q", o.Parser.Ambiguous), nil)
	}
	for _, s := range o.Parser.Strategies {
		switch s {
		case domain.StrategyLabel, domain.StrategyMonthName, domain.StrategyIssueDate, domain.StrategyOverride:
		default:
			return domain.ValidationError(fmt.Sprintf("unknown period strategy %q", s), nil)
		}
	}
	return nil
}

// Fingerprint identifies every option that can change an extraction outcome.
func (o Options) Fingerprint() string {
	p := o.Parser
	strategies := make([]string, len(p.Strategies))
	for i, s := range p.Strategies {
		strategies[i] = string(s)
	}
	override := ""
	if !p.PeriodOverride.IsZero() {
		override = p.PeriodOverride.String()
	}
	return fmt.Sprintf("digits=%d;cur=%s;sym=%s;amb=%s;override=%s;scan=%d;strategies=%s;dup=%s;max=%d",
		p.IdentifierDigits, p.Currency, p.CurrencySymbol, p.Ambiguous, override,
		p.PeriodScanPages, strings.Join(strategies, ","), o.DuplicatePolicy, o.MaxAnomalies)
}
