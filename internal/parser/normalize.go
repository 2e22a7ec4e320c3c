// Package parser turns raw page text into normalized lines and recognizes the
// payroll elements in them: monetary amounts, the reference period and the
// per-employee blocks.
package parser

import (
	"iter"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spherical/payroll-extract/internal/domain"
)

// Normalizer converts page text into a lazy sequence of normalized lines.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Lines yields one TextLine per non-empty physical line, in page order. The
// sequence is backed by pages and can be ranged over more than once.
func (n *Normalizer) Lines(pages []domain.PageText) iter.Seq[domain.TextLine] {
	return func(yield func(domain.TextLine) bool) {
		for _, page := range pages {
			index := 0
			for raw := range strings.Lines(page.Text) {
				text := NormalizeText(raw)
				if text == "" {
					continue
				}
				line := domain.TextLine{
					Text:   text,
					Folded: strings.ToLower(text),
					Page:   page.Number,
					Index:  index,
				}
				index++
				if !yield(line) {
					return
				}
			}
		}
	}
}

// Collect materializes a line sequence.
func Collect(seq iter.Seq[domain.TextLine]) []domain.TextLine {
	var lines []domain.TextLine
	for l := range seq {
		lines = append(lines, l)
	}
	return lines
}

// NormalizeText collapses whitespace runs to single spaces, trims the result and
// strips diacritical marks.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(StripDiacritics(s)), " ")
}

// StripDiacritics removes combining marks after canonical decomposition, so
// "Competência" becomes "Competencia".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
