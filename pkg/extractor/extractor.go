// Package extractor is the public entry point for payroll extraction from
// PDF documents.
package extractor

import (
	"context"
	"errors"
	"os"

	"github.com/spherical/payroll-extract/internal/cache"
	"github.com/spherical/payroll-extract/internal/config"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/extract"
	"github.com/spherical/payroll-extract/internal/parser"
	"github.com/spherical/payroll-extract/internal/pdf"
)

// Re-export domain types for the public API
type (
	Payroll         = domain.Payroll
	Employee        = domain.Employee
	Money           = domain.Money
	Period          = domain.Period
	Summary         = domain.Summary
	Report          = domain.Report
	Anomaly         = domain.Anomaly
	StreamEvent     = domain.StreamEvent
	EventType       = domain.EventType
	DomainError     = domain.DomainError
	ErrorType       = domain.ErrorType
	Result          = extract.Result
	Options         = extract.Options
	ParserOptions   = parser.Options
	DuplicatePolicy = extract.DuplicatePolicy
	BatchItem       = extract.BatchItem
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventDocumentRead   = domain.EventDocumentRead
	EventPeriodDetected = domain.EventPeriodDetected
	EventEmployeeParsed = domain.EventEmployeeParsed
	EventAnomaly        = domain.EventAnomaly
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
)

// Error kinds callers can test with IsError.
const (
	ErrDocumentUnreadable = domain.ErrorTypeDocumentUnreadable
	ErrPeriodNotDetected  = domain.ErrorTypePeriodNotDetected
	ErrInvalidOperation   = domain.ErrorTypeInvalidOperation
	ErrParseAnomaly       = domain.ErrorTypeParseAnomaly
	ErrNoEmployees        = domain.ErrorTypeNoEmployees
)

// Duplicate policies
const (
	DuplicateLast  = extract.DuplicateLast
	DuplicateFirst = extract.DuplicateFirst
)

// DefaultOptions returns the standard extraction options.
func DefaultOptions() Options { return extract.DefaultOptions() }

// ParsePeriod parses "MM/YYYY".
func ParsePeriod(s string) (Period, error) { return domain.ParsePeriod(s) }

// IsError reports whether err carries the given error kind.
func IsError(err error, kind ErrorType) bool { return domain.IsType(err, kind) }

// Client is the main entry point for the payroll extractor library
type Client struct {
	service     *extract.Service
	concurrency int
	cache       cache.Client
}

// Config holds configuration options for the client
type Config struct {
	Options     Options
	Concurrency int            // batch concurrency; 0 uses the default
	Logger      *domain.Logger // nil discards logs
	Cache       cache.Client   // optional result cache
}

// NewClient creates a client configured from the environment. A .env file in
// the working directory is loaded first, and PAYROLL_CONFIG may name a YAML
// configuration file.
func NewClient() (*Client, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(os.Getenv("PAYROLL_CONFIG"))
	if err != nil {
		return nil, err
	}

	opts, err := cfg.ExtractOptions()
	if err != nil {
		return nil, domain.ConfigError("extraction options", err)
	}

	logger := domain.NewLoggerWithConfig(cfg.LogConfig())
	_, cacheClient, err := cfg.OpenResultCache(context.Background(), logger)
	if err != nil {
		return nil, err
	}

	return NewClientWithConfig(&Config{
		Options:     opts,
		Concurrency: cfg.Batch.Concurrency,
		Logger:      logger,
		Cache:       cacheClient,
	})
}

// NewClientWithConfig creates a new extractor client with custom configuration
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("config is required", nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = domain.NopLogger()
	}

	service, err := extract.NewService(pdf.NewReader(logger), cfg.Options, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Cache != nil {
		service.WithCache(cache.NewResultCache(cfg.Cache, cache.DefaultResultCacheConfig(), logger))
	}

	return &Client{
		service:     service,
		concurrency: cfg.Concurrency,
		cache:       cfg.Cache,
	}, nil
}

// Extract reads the PDF at path and returns the payroll with its report.
func (c *Client) Extract(ctx context.Context, path string) (*Result, error) {
	return c.service.Extract(ctx, path, nil)
}

// ExtractBytes extracts a payroll from an in-memory PDF.
func (c *Client) ExtractBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	return c.service.ExtractBytes(ctx, name, data, nil)
}

// ExtractText extracts a payroll from already extracted page texts.
func (c *Client) ExtractText(ctx context.Context, source string, pages ...string) (*Result, error) {
	texts := make([]domain.PageText, len(pages))
	for i, p := range pages {
		texts[i] = domain.PageText{Number: i + 1, Text: p}
	}
	return c.service.ExtractPages(ctx, source, texts, nil)
}

// ExtractAll extracts several documents concurrently. Per-document failures
// are reported in the items.
func (c *Client) ExtractAll(ctx context.Context, paths []string) ([]BatchItem, error) {
	return extract.NewBatch(c.service, c.concurrency).Run(ctx, paths)
}

// Process extracts the payroll at path in the background.
// Returns a channel that streams events as extraction progresses; the channel
// is closed when the run ends. Progress events are dropped when the consumer
// falls behind, but the last event, complete or error, is always delivered
// unless ctx ends first.
func (c *Client) Process(ctx context.Context, path string) (<-chan StreamEvent, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, domain.DocumentUnreadableError("document not found", err)
	}

	eventCh := make(chan StreamEvent, 100)

	go func() {
		defer close(eventCh)
		_, _ = c.service.Extract(ctx, path, eventCh)
	}()

	return eventCh, nil
}

// Close releases the result cache.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
