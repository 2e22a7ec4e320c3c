package parser

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spherical/payroll-extract/internal/domain"
)

// Candidate is a monetary value found in a line.
type Candidate struct {
	Money  domain.Money
	Raw    string
	Page   int
	Line   int
	Column int // byte offset of the token within the line text
}

// MoneyExtractor finds locale-formatted amounts in normalized lines.
type MoneyExtractor struct {
	opts    domain.ParseOptions
	tokenRe *regexp.Regexp
	logger  *domain.Logger
}

// NewMoneyExtractor builds an extractor for the given parse options.
func NewMoneyExtractor(opts domain.ParseOptions, logger *domain.Logger) *MoneyExtractor {
	if logger == nil {
		logger = domain.DefaultLogger
	}

	symbols := slices.Clone(domain.CurrencySymbols)
	if opts.Symbol != "" && !slices.Contains(symbols, opts.Symbol) {
		symbols = append(symbols, opts.Symbol)
	}
	// longest first so "US$" wins over "$"
	slices.SortFunc(symbols, func(a, b string) int { return len(b) - len(a) })
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = regexp.QuoteMeta(s)
	}

	pattern := `[-+]?(?:(?:` + strings.Join(quoted, "|") + `)\s?)?[-+]?\d(?:[\d.,]*\d)?`
	return &MoneyExtractor{
		opts:    opts,
		tokenRe: regexp.MustCompile(pattern),
		logger:  logger.WithPrefix("money"),
	}
}

// Extract returns the valid amounts of a line in order of appearance, and the
// numeric-looking tokens that failed the grammar. Rejections never abort.
func (x *MoneyExtractor) Extract(line domain.TextLine) ([]Candidate, []domain.Rejection) {
	var (
		candidates []Candidate
		rejections []domain.Rejection
	)

	text := line.Text
	for _, loc := range x.tokenRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		token := text[start:end]

		if !strings.ContainsAny(token, ".,") {
			continue
		}
		if gluedBefore(text, start) || gluedAfter(text, end) {
			continue
		}

		m, err := domain.ParseMoney(token, x.opts)
		if err != nil {
			reason := err.Error()
			if cause := errors.Unwrap(err); cause != nil {
				reason = cause.Error()
			}
			x.logger.Debug("Rejected money candidate %q on page %d: %s", token, line.Page, reason)
			rejections = append(rejections, domain.Rejection{
				Token:  token,
				Reason: reason,
				Page:   line.Page,
				Line:   line.Index,
			})
			continue
		}

		candidates = append(candidates, Candidate{
			Money:  m,
			Raw:    token,
			Page:   line.Page,
			Line:   line.Index,
			Column: start,
		})
	}

	return candidates, rejections
}

// StripAmounts removes every valid amount from s.
func (x *MoneyExtractor) StripAmounts(s string) string {
	candidates, _ := x.Extract(domain.TextLine{Text: s})
	for i := len(candidates) - 1; i >= 0; i-- {
		c := candidates[i]
		s = s[:c.Column] + s[c.Column+len(c.Raw):]
	}
	return NormalizeText(s)
}

// gluedBefore reports whether the token continues a word or code to its left.
func gluedBefore(text string, start int) bool {
	if start == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".,/-", r)
}

// gluedAfter reports whether the token is a percentage, part of a word, or the
// head of a date or document code such as "123.456.789-00".
func gluedAfter(text string, end int) bool {
	if end >= len(text) {
		return false
	}
	r, size := utf8.DecodeRuneInString(text[end:])
	if r == '%' || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	if r == '/' || r == '-' {
		next, _ := utf8.DecodeRuneInString(text[end+size:])
		return unicode.IsDigit(next)
	}
	return false
}
