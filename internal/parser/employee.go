package parser

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode"

	"github.com/spherical/payroll-extract/internal/domain"
)

// UnspecifiedPosition is recorded when a block carries no position line.
const UnspecifiedPosition = "UNSPECIFIED"

// excludedContexts are words that, right before a digit run, mark it as a page
// number or document code rather than an employee identifier.
var excludedContexts = map[string]bool{
	"pagina": true, "pag": true, "page": true, "folha": true, "fl": true,
	"documento": true, "doc": true, "protocolo": true, "processo": true,
	"cnpj": true, "cpf": true, "cep": true, "lote": true, "codigo": true,
}

// connectors may sit between a context word and the number ("pagina no 123456").
var connectors = map[string]bool{"n": true, "no": true, "nr": true, "num": true, "numero": true, "#": true}

var (
	tokenRe         = regexp.MustCompile(`\S+`)
	dateRe          = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b|\b\d{1,2}/\d{4}\b`)
	positionLabelRe = regexp.MustCompile(`(?i)\b(?:cargo|funcao|position|job title)\s*[:\-]\s*(.+)`)
	nameLabelRe     = regexp.MustCompile(`(?i)^(?:nome|name)\s*[:\-]\s*`)
	grossLabelRe    = regexp.MustCompile(`\b(?:salario bruto|total bruto|bruto|total de vencimentos|total vencimentos|total de proventos|total proventos|gross pay|gross salary|gross amount)\b`)
	netLabelRe      = regexp.MustCompile(`\b(?:valor liquido|liquido|a receber|net pay|net salary|net amount)\b`)
	fieldLabelRe    = regexp.MustCompile(`^(?:cargo|funcao|position|job title|total|admissao|cpf|departamento|setor)\b`)
)

// Block is the run of lines belonging to one employee identifier.
type Block struct {
	ID    string
	Page  int
	Lines []domain.TextLine
}

// Start is the page-relative index of the identifier line.
func (b Block) Start() int { return b.Lines[0].Index }

// End is the page-relative index of the block's last line.
func (b Block) End() int { return b.Lines[len(b.Lines)-1].Index }

// BlockResult is an employee record and the block it came from.
type BlockResult struct {
	Employee domain.Employee
	Block    Block
}

// BlockExtraction is the outcome of scanning a document for employee blocks.
type BlockExtraction struct {
	Records     []BlockResult
	BlocksFound int
	Anomalies   []domain.Anomaly
	Rejections  []domain.Rejection
}

// BlockExtractor segments lines into employee blocks and reads each block's
// identifier, name, position and gross/net amounts.
type BlockExtractor struct {
	digits   int
	currency string
	money    *MoneyExtractor
	logger   *domain.Logger
}

// NewBlockExtractor creates a block extractor.
func NewBlockExtractor(opts Options, money *MoneyExtractor, logger *domain.Logger) *BlockExtractor {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	digits := opts.IdentifierDigits
	if digits <= 0 {
		digits = domain.DefaultIdentifierDigits
	}
	if money == nil {
		money = NewMoneyExtractor(opts.ParseOptions(), logger)
	}
	return &BlockExtractor{
		digits:   digits,
		currency: opts.Currency,
		money:    money,
		logger:   logger.WithPrefix("employees"),
	}
}

// Extract splits lines into blocks and parses each one. Blocks end at the next
// identifier line or at the end of the page.
func (x *BlockExtractor) Extract(lines iter.Seq[domain.TextLine]) BlockExtraction {
	var out BlockExtraction
	var current *Block

	flush := func() {
		if current == nil {
			return
		}
		out.BlocksFound++
		x.parseBlock(*current, &out)
		current = nil
	}

	for line := range lines {
		if current != nil && line.Page != current.Page {
			flush()
		}
		if id, ok := x.Identifier(line.Text); ok {
			flush()
			current = &Block{ID: id, Page: line.Page}
		}
		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}
	flush()

	x.logger.Debug("Found %d blocks, %d records, %d anomalies", out.BlocksFound, len(out.Records), len(out.Anomalies))
	return out
}

// Identifier returns the first standalone identifier token of the configured
// width in text, ignoring tokens introduced by an excluded context word.
func (x *BlockExtractor) Identifier(text string) (string, bool) {
	id, _, ok := x.locateIdentifier(text)
	return id, ok
}

func (x *BlockExtractor) locateIdentifier(text string) (string, int, bool) {
	locs := tokenRe.FindAllStringIndex(text, -1)
	for i, loc := range locs {
		token := strings.TrimRight(text[loc[0]:loc[1]], ":;,-")
		if len(token) != x.digits || !isDigits(token) {
			continue
		}
		if x.excludedContext(text, locs[:i]) {
			continue
		}
		return token, loc[0] + len(token), true
	}
	return "", 0, false
}

func (x *BlockExtractor) excludedContext(text string, before [][]int) bool {
	for j := len(before) - 1; j >= 0; j-- {
		word := strings.ToLower(strings.Trim(text[before[j][0]:before[j][1]], ".:#-"))
		if word == "" || connectors[word] {
			continue
		}
		return excludedContexts[word]
	}
	return false
}

func (x *BlockExtractor) parseBlock(b Block, out *BlockExtraction) {
	anomaly := func(kind domain.AnomalyKind, sev domain.Severity, line domain.TextLine, format string, args ...interface{}) {
		a := domain.Anomaly{
			Kind:       kind,
			Severity:   sev,
			EmployeeID: b.ID,
			Page:       line.Page,
			Line:       line.Index,
			Message:    fmt.Sprintf(format, args...),
		}
		x.logger.Warn("Employee %s: %s", b.ID, a.Message)
		out.Anomalies = append(out.Anomalies, a)
	}

	head := b.Lines[0]

	name, nameIdx := x.findName(b)
	if name == "" {
		anomaly(domain.AnomalyMissingName, domain.SeverityAnomaly, head, "block on page %d has no name, skipped", b.Page)
		return
	}

	position, ok := x.findPosition(b, nameIdx)
	if !ok {
		position = UnspecifiedPosition
		anomaly(domain.AnomalyMissingPosition, domain.SeverityAnomaly, head, "no position line found")
	}

	var candidates []Candidate
	perLine := make([][]Candidate, len(b.Lines))
	for i, line := range b.Lines {
		c, rej := x.money.Extract(line)
		perLine[i] = c
		candidates = append(candidates, c...)
		out.Rejections = append(out.Rejections, rej...)
	}

	zero := domain.Zero(x.currency)
	gross, net := zero, zero
	noPayment := len(candidates) == 0

	if !noPayment {
		var single bool
		gross, net, single = pickGrossNet(b.Lines, perLine, candidates)
		if single {
			anomaly(domain.AnomalySingleAmount, domain.SeverityWarning, head, "only one amount found, used as gross and net")
		}
	}

	e, err := domain.NewEmployee(b.ID, name, position, gross, net, b.Page)
	if err != nil {
		anomaly(domain.AnomalyInvalidRecord, domain.SeverityAnomaly, head, "invalid record: %v", err)
		return
	}
	e.NoPayment = noPayment

	if e.NetExceedsGross() {
		anomaly(domain.AnomalyNetExceedsGross, domain.SeverityWarning, head,
			"net %s exceeds gross %s", e.Net.Format(), e.Gross.Format())
	}

	out.Records = append(out.Records, BlockResult{Employee: e, Block: b})
}

// findName returns the normalized name and the index (within the block) of the
// line it was read from.
func (x *BlockExtractor) findName(b Block) (string, int) {
	_, end, _ := x.locateIdentifier(b.Lines[0].Text)
	rest := strings.TrimLeft(b.Lines[0].Text[end:], " -–:|")
	rest = nameLabelRe.ReplaceAllString(rest, "")
	if x.descriptive(rest) && !fieldLabelRe.MatchString(strings.ToLower(rest)) {
		return x.cleanName(rest), 0
	}

	for i := 1; i < len(b.Lines); i++ {
		line := b.Lines[i]
		if !x.descriptive(line.Text) || x.isFieldLine(line.Folded) {
			continue
		}
		text := nameLabelRe.ReplaceAllString(line.Text, "")
		return x.cleanName(text), i
	}
	return "", -1
}

// cleanName drops dates and amounts that share a line with the name.
func (x *BlockExtractor) cleanName(text string) string {
	return NormalizeName(x.money.StripAmounts(dateRe.ReplaceAllString(text, "")))
}

// findPosition prefers a labelled position line anywhere in the block, then the
// first descriptive line after the name.
func (x *BlockExtractor) findPosition(b Block, nameIdx int) (string, bool) {
	for _, line := range b.Lines {
		if m := positionLabelRe.FindStringSubmatch(line.Text); m != nil {
			if pos := x.money.StripAmounts(m[1]); x.descriptive(pos) {
				return pos, true
			}
		}
	}

	for i := nameIdx + 1; i < len(b.Lines); i++ {
		line := b.Lines[i]
		if !x.descriptive(line.Text) || x.isFieldLine(line.Folded) {
			continue
		}
		return x.money.StripAmounts(line.Text), true
	}
	return "", false
}

func (x *BlockExtractor) isFieldLine(folded string) bool {
	return fieldLabelRe.MatchString(folded) || grossLabelRe.MatchString(folded) || netLabelRe.MatchString(folded)
}

// descriptive reports whether text carries words, not only amounts and dates.
func (x *BlockExtractor) descriptive(text string) bool {
	rest := dateRe.ReplaceAllString(x.money.StripAmounts(text), "")
	letters := 0
	for _, r := range rest {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

// pickGrossNet chooses gross and net for a block with at least one candidate.
// Labelled lines win. Otherwise gross is the earliest amount and net the next
// amount with a different value; when both sit on the same line the larger one
// is gross.
func pickGrossNet(lines []domain.TextLine, perLine [][]Candidate, all []Candidate) (gross, net domain.Money, single bool) {
	grossC, hasGross := labelled(lines, perLine, grossLabelRe)
	netC, hasNet := labelled(lines, perLine, netLabelRe)

	switch {
	case hasGross && hasNet:
		return grossC.Money, netC.Money, false
	case hasNet:
		largest := all[0]
		for _, c := range all[1:] {
			if c.Money.Cmp(largest.Money) > 0 {
				largest = c
			}
		}
		return largest.Money, netC.Money, false
	case hasGross:
		for _, c := range all {
			if positionAfter(c, grossC) && !c.Money.Equal(grossC.Money) {
				return grossC.Money, c.Money, false
			}
		}
		return grossC.Money, grossC.Money, true
	}

	first := all[0]
	for _, c := range all[1:] {
		if c.Money.Equal(first.Money) {
			continue
		}
		if c.Page == first.Page && c.Line == first.Line && c.Money.Cmp(first.Money) > 0 {
			return c.Money, first.Money, false
		}
		return first.Money, c.Money, false
	}
	return first.Money, first.Money, true
}

// labelled returns the amount attached to the first line matching label: the
// last amount on that line, or else the first amount on the following line.
func labelled(lines []domain.TextLine, perLine [][]Candidate, label *regexp.Regexp) (Candidate, bool) {
	for i, line := range lines {
		if !label.MatchString(line.Folded) {
			continue
		}
		if c := perLine[i]; len(c) > 0 {
			return c[len(c)-1], true
		}
		if i+1 < len(lines) && len(perLine[i+1]) > 0 {
			return perLine[i+1][0], true
		}
	}
	return Candidate{}, false
}

func positionAfter(c, ref Candidate) bool {
	if c.Line != ref.Line {
		return c.Line > ref.Line
	}
	return c.Column > ref.Column
}

// NormalizeName uppercases a name, strips diacritics and punctuation edges and
// collapses whitespace.
func NormalizeName(s string) string {
	s = strings.ToUpper(NormalizeText(s))
	return strings.Trim(s, " -–:|,;.")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
