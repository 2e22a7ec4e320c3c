package domain

import (
	"strings"
	"time"
)

// PageText is the raw text of one document page.
type PageText struct {
	Number int // 1-based
	Text   string
}

// HasText reports whether any page carries non-blank text.
func HasText(pages []PageText) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// TextLine is a normalized, non-empty line of document text.
type TextLine struct {
	Text   string // whitespace collapsed, diacritics stripped, original case
	Folded string // lowercase form of Text used for matching
	Page   int    // 1-based page number
	Index  int    // position of the line within its page, 0-based
}

// PeriodStrategy names the rule that produced a period detection.
type PeriodStrategy string

const (
	StrategyLabel     PeriodStrategy = "label"
	StrategyMonthName PeriodStrategy = "month_name"
	StrategyIssueDate PeriodStrategy = "issue_date"
	StrategyOverride  PeriodStrategy = "override"
)

// PeriodDetection records which strategy produced the period and where.
type PeriodDetection struct {
	Period   Period         `json:"period"`
	Strategy PeriodStrategy `json:"strategy"`
	Page     int            `json:"page"` // 0 for the configured override
	Line     int            `json:"line"`
	Source   string         `json:"source,omitempty"`
}

// Severity grades a recovered defect.
type Severity string

const (
	SeverityAnomaly Severity = "anomaly"
	SeverityWarning Severity = "warning"
)

// AnomalyKind classifies recovered defects found while extracting blocks.
type AnomalyKind string

const (
	AnomalyMissingName     AnomalyKind = "missing_name"
	AnomalyMissingPosition AnomalyKind = "missing_position"
	AnomalyInvalidRecord   AnomalyKind = "invalid_record"
	AnomalySingleAmount    AnomalyKind = "single_amount"
	AnomalyNetExceedsGross AnomalyKind = "net_exceeds_gross"
	AnomalyDuplicateID     AnomalyKind = "duplicate_identifier"
)

// Anomaly is a non-fatal defect recorded during extraction.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	Severity   Severity    `json:"severity"`
	EmployeeID string      `json:"employee_id,omitempty"`
	Page       int         `json:"page"`
	Line       int         `json:"line"`
	Message    string      `json:"message"`
}

// Rejection is a numeric-looking token that failed the money grammar.
type Rejection struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
	Page   int    `json:"page"`
	Line   int    `json:"line"`
}

// Report is the diagnostics produced alongside every successful extraction.
type Report struct {
	RunID              string           `json:"run_id"`
	Source             string           `json:"source"`
	Pages              int              `json:"pages"`
	LinesScanned       int              `json:"lines_scanned"`
	BlocksFound        int              `json:"blocks_found"`
	EmployeeCount      int              `json:"employee_count"`
	DuplicatesResolved int              `json:"duplicates_resolved"`
	Period             *PeriodDetection `json:"period,omitempty"`
	Anomalies          []Anomaly        `json:"anomalies,omitempty"`
	Rejections         []Rejection      `json:"rejections,omitempty"`
	CacheHit           bool             `json:"cache_hit"`
	StartedAt          time.Time        `json:"started_at"`
	Duration           time.Duration    `json:"duration"`
}

// AnomalyCount counts anomalies of anomaly severity; warnings are excluded.
func (r Report) AnomalyCount() int {
	return r.countSeverity(SeverityAnomaly)
}

// WarningCount counts data-quality warnings.
func (r Report) WarningCount() int {
	return r.countSeverity(SeverityWarning)
}

func (r Report) countSeverity(s Severity) int {
	n := 0
	for _, a := range r.Anomalies {
		if a.Severity == s {
			n++
		}
	}
	return n
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventDocumentRead   EventType = "document_read"
	EventPeriodDetected EventType = "period_detected"
	EventEmployeeParsed EventType = "employee_parsed"
	EventAnomaly        EventType = "anomaly"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	Source     string      `json:"source,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
