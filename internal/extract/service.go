package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/payroll-extract/internal/cache"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/parser"
)

// Result is a frozen payroll and the diagnostics of the run that produced it.
type Result struct {
	Payroll *domain.Payroll
	Report  domain.Report
}

// Summary returns the payroll summary.
func (r *Result) Summary() domain.Summary {
	return r.Payroll.Summary()
}

// Service orchestrates the extraction pipeline: read pages, normalize lines,
// detect the period, extract employee blocks, resolve duplicates and freeze the
// payroll.
type Service struct {
	reader     domain.PageReader
	opts       Options
	normalizer *parser.Normalizer
	periods    *parser.PeriodDetector
	blocks     *parser.BlockExtractor
	cache      *cache.ResultCache
	logger     *domain.Logger
}

// NewService creates a new extraction service. A nil logger uses
// domain.DefaultLogger.
func NewService(reader domain.PageReader, opts Options, logger *domain.Logger) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = DuplicateLast
	}
	if len(opts.Parser.Strategies) == 0 {
		opts.Parser.Strategies = parser.DefaultStrategies()
	}
	if logger == nil {
		logger = domain.DefaultLogger
	}

	money := parser.NewMoneyExtractor(opts.Parser.ParseOptions(), logger)
	return &Service{
		reader:     reader,
		opts:       opts,
		normalizer: parser.NewNormalizer(),
		periods:    parser.NewPeriodDetector(opts.Parser, logger),
		blocks:     parser.NewBlockExtractor(opts.Parser, money, logger),
		logger:     logger.WithPrefix("extract"),
	}, nil
}

// WithCache enables result caching. Only path and byte inputs are cached.
func (s *Service) WithCache(c *cache.ResultCache) *Service {
	s.cache = c
	return s
}

// Options returns the options the service runs with.
func (s *Service) Options() Options { return s.opts }

// Extract runs the pipeline over the document at path. The file is opened once:
// with a cache the bytes read for the cache key are also the ones decoded.
func (s *Service) Extract(ctx context.Context, path string, eventCh chan<- domain.StreamEvent) (*Result, error) {
	if s.reader == nil || s.cache == nil {
		return s.run(ctx, path, "", func(ctx context.Context) ([]domain.PageText, error) {
			if s.reader == nil {
				return nil, domain.InvalidOperationError("service has no page reader", nil)
			}
			return s.reader.ReadPages(ctx, path)
		}, eventCh)
	}

	key := ""
	data, readErr := s.reader.ReadFile(ctx, path)
	if readErr == nil {
		key = s.cache.Key(data, s.opts.Fingerprint())
	}
	return s.run(ctx, path, key, func(ctx context.Context) ([]domain.PageText, error) {
		if readErr != nil {
			return nil, readErr
		}
		return s.reader.ReadDocument(ctx, path, data)
	}, eventCh)
}

// ExtractBytes runs the pipeline over an in-memory PDF. name labels the source
// in the report.
func (s *Service) ExtractBytes(ctx context.Context, name string, data []byte, eventCh chan<- domain.StreamEvent) (*Result, error) {
	key := ""
	if s.cache != nil && len(data) > 0 {
		key = s.cache.Key(data, s.opts.Fingerprint())
	}
	return s.run(ctx, name, key, func(ctx context.Context) ([]domain.PageText, error) {
		if s.reader == nil {
			return nil, domain.InvalidOperationError("service has no page reader", nil)
		}
		return s.reader.ReadPagesFromBytes(ctx, data)
	}, eventCh)
}

// ExtractPages runs the pipeline over page texts already in memory.
func (s *Service) ExtractPages(ctx context.Context, source string, pages []domain.PageText, eventCh chan<- domain.StreamEvent) (*Result, error) {
	return s.run(ctx, source, "", func(context.Context) ([]domain.PageText, error) {
		return pages, nil
	}, eventCh)
}

func (s *Service) run(ctx context.Context, source, cacheKey string, load func(context.Context) ([]domain.PageText, error), eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	report := domain.Report{
		RunID:     uuid.NewString(),
		Source:    source,
		StartedAt: startTime.UTC(),
	}
	logger := s.logger.With("run_id", report.RunID)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Source:    source,
		Payload:   fmt.Sprintf("Starting extraction of %s", source),
		Timestamp: time.Now(),
	})

	fail := func(err error) (*Result, error) {
		logger.Error("Extraction of %s failed: %v", source, err)
		s.emitError(ctx, eventCh, source, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if cacheKey != "" {
		if res, ok := s.fromCache(ctx, cacheKey, &report, logger); ok {
			report.Duration = time.Since(startTime)
			res.Report = report
			s.complete(ctx, eventCh, res, logger)
			return res, nil
		}
	}

	logger.Info("Reading %s", source)
	pages, err := load(ctx)
	if err != nil {
		return fail(err)
	}
	if !domain.HasText(pages) {
		return fail(domain.DocumentUnreadableError(
			fmt.Sprintf("%s has no extractable text in %d pages", source, len(pages)), nil))
	}
	report.Pages = len(pages)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventDocumentRead,
		Source:    source,
		Payload:   fmt.Sprintf("Read %d pages", len(pages)),
		Timestamp: time.Now(),
	})

	lines := parser.Collect(s.normalizer.Lines(pages))
	report.LinesScanned = len(lines)

	detection, err := s.periods.Detect(slices.Values(lines))
	if err != nil {
		return fail(err)
	}
	report.Period = &detection
	logger.Info("Period %s detected by %s strategy", detection.Period, detection.Strategy)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventPeriodDetected,
		Source:     source,
		PageNumber: detection.Page,
		Payload:    detection,
		Timestamp:  time.Now(),
	})

	blocks := s.blocks.Extract(slices.Values(lines))
	report.BlocksFound = blocks.BlocksFound
	report.Rejections = blocks.Rejections

	b := newBuilder(s.opts.DuplicatePolicy)
	for _, r := range blocks.Records {
		b.add(r)
	}
	report.DuplicatesResolved = b.resolved
	report.Anomalies = append(slices.Clone(blocks.Anomalies), b.anomalies...)

	for _, a := range report.Anomalies {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventAnomaly,
			Source:     source,
			PageNumber: a.Page,
			Payload:    a,
			Timestamp:  time.Now(),
		})
	}

	if limit := s.opts.MaxAnomalies; limit > 0 && report.AnomalyCount() > limit {
		return fail(domain.ParseAnomalyError(
			fmt.Sprintf("%d anomalies exceed the limit of %d", report.AnomalyCount(), limit), nil))
	}
	if b.len() == 0 {
		return fail(domain.NoEmployeesError(
			fmt.Sprintf("no employees found in %d blocks", report.BlocksFound), nil))
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	payroll, err := b.build(detection.Period)
	if err != nil {
		return fail(err)
	}
	report.EmployeeCount = payroll.Len()

	for _, e := range payroll.All() {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventEmployeeParsed,
			Source:     source,
			PageNumber: e.Page,
			Payload:    e,
			Timestamp:  time.Now(),
		})
	}

	if cacheKey != "" {
		s.toCache(ctx, cacheKey, payroll, report, logger)
	}

	report.Duration = time.Since(startTime)
	res := &Result{Payroll: payroll, Report: report}
	s.complete(ctx, eventCh, res, logger)
	return res, nil
}

func (s *Service) fromCache(ctx context.Context, key string, report *domain.Report, logger *domain.Logger) (*Result, bool) {
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsMiss(err) {
			logger.Warn("Cache lookup failed: %v", err)
		}
		return nil, false
	}

	payroll, err := domain.FromSnapshot(cached.Payroll)
	if err != nil {
		logger.Warn("Ignoring invalid cached payroll: %v", err)
		return nil, false
	}

	detection := cached.Period
	report.CacheHit = true
	report.Pages = cached.Pages
	report.LinesScanned = cached.LinesScanned
	report.BlocksFound = cached.BlocksFound
	report.DuplicatesResolved = cached.DuplicatesResolved
	report.Period = &detection
	report.Anomalies = cached.Anomalies
	report.Rejections = cached.Rejections
	report.EmployeeCount = payroll.Len()
	logger.Debug("Cache hit for %s", report.Source)
	return &Result{Payroll: payroll}, true
}

func (s *Service) toCache(ctx context.Context, key string, payroll *domain.Payroll, report domain.Report, logger *domain.Logger) {
	err := s.cache.Put(ctx, key, cache.CachedResult{
		Payroll:            payroll.Snapshot(),
		Period:             *report.Period,
		Pages:              report.Pages,
		LinesScanned:       report.LinesScanned,
		BlocksFound:        report.BlocksFound,
		DuplicatesResolved: report.DuplicatesResolved,
		Anomalies:          report.Anomalies,
		Rejections:         report.Rejections,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Cache store failed: %v", err)
	}
}

func (s *Service) complete(ctx context.Context, eventCh chan<- domain.StreamEvent, res *Result, logger *domain.Logger) {
	logger.Report(res.Report)
	s.emitTerminal(ctx, eventCh, domain.StreamEvent{
		Type:   domain.EventComplete,
		Source: res.Report.Source,
		Payload: fmt.Sprintf("Extraction complete: %d employees for %s in %v",
			res.Payroll.Len(), res.Payroll.Period(), res.Report.Duration),
		Timestamp: time.Now(),
	})
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			s.logger.Warn("Event channel full, dropping event: %s", event.Type)
		}
	}
}

// emitTerminal delivers the last event of a run. Unlike progress events it
// waits for the consumer, giving up only when ctx ends.
func (s *Service) emitTerminal(ctx context.Context, eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
		return
	default:
	}
	select {
	case eventCh <- event:
	case <-ctx.Done():
		s.logger.Warn("Context done before %s event was delivered", event.Type)
	}
}

// emitError emits an error event
func (s *Service) emitError(ctx context.Context, eventCh chan<- domain.StreamEvent, source string, err error) {
	s.emitTerminal(ctx, eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Source:    source,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
