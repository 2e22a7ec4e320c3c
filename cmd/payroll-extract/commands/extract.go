package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical/payroll-extract/cmd/payroll-extract/ui"
	"github.com/spherical/payroll-extract/internal/config"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/extract"
	"github.com/spherical/payroll-extract/internal/pdf"
	"github.com/spherical/payroll-extract/internal/storage"
)

var (
	extractPeriod       string
	extractDuplicates   string
	extractMaxAnomalies int
	extractConcurrency  int
	extractSave         bool
	extractQuiet        bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract payroll records from one or more PDF reports",
	Long: `Extract the employee records of each payroll report.

With a single file the employee table, the payroll summary and the run
diagnostics are printed. Several files are processed concurrently with a
progress bar and one summary line per document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPeriod, "period", "", "fallback period MM/YYYY when the document has none")
	extractCmd.Flags().StringVar(&extractDuplicates, "duplicate-policy", "", "which block wins for a repeated identifier: last or first")
	extractCmd.Flags().IntVar(&extractMaxAnomalies, "max-anomalies", 0, "fail a document with more anomalies than this (0 disables)")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 0, "documents processed at once")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "save extracted payrolls to the database")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "print only the summary")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyExtractFlags(cmd, cfg); err != nil {
		return err
	}
	opts, err := cfg.ExtractOptions()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	service, err := extract.NewService(pdf.NewReader(logger), opts, logger)
	if err != nil {
		return err
	}

	results, cacheClient, err := cfg.OpenResultCache(ctx, logger)
	if err != nil {
		return err
	}
	if cacheClient != nil {
		defer cacheClient.Close()
		service.WithCache(results)
	}

	var store *storage.Store
	if extractSave {
		if store, err = openStore(ctx, cfg); err != nil {
			return err
		}
		defer store.Close()
	}

	if len(args) == 1 {
		return extractOne(ctx, service, store, args[0], cfg.Extraction.CurrencySymbol)
	}
	return extractMany(ctx, service, store, args, cfg.Batch.Concurrency)
}

// applyExtractFlags lets explicitly set flags win over the configuration.
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("period") {
		cfg.Extraction.PeriodOverride = extractPeriod
	}
	if flags.Changed("duplicate-policy") {
		cfg.Extraction.DuplicatePolicy = extractDuplicates
	}
	if flags.Changed("max-anomalies") {
		cfg.Extraction.MaxAnomalies = extractMaxAnomalies
	}
	if flags.Changed("concurrency") {
		if extractConcurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1")
		}
		cfg.Batch.Concurrency = extractConcurrency
	}
	return nil
}

func extractOne(ctx context.Context, service *extract.Service, store *storage.Store, path, symbol string) error {
	eventCh := make(chan domain.StreamEvent, 256)
	type outcome struct {
		res *extract.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := service.Extract(ctx, path, eventCh)
		close(eventCh)
		done <- outcome{res, err}
	}()

	var spinner *ui.ProgressBar
	if !extractQuiet {
		spinner = ui.NewSpinner("Reading " + filepath.Base(path))
	}
	var warnings []string
	for ev := range eventCh {
		if ev.Type == domain.EventAnomaly {
			if a, ok := ev.Payload.(domain.Anomaly); ok && a.Severity == domain.SeverityAnomaly {
				warnings = append(warnings, a.Message)
			}
		}
		if spinner != nil {
			spinner.Describe(describeEvent(ev))
			spinner.Add(1)
		}
	}
	if spinner != nil {
		spinner.Finish()
	}

	out := <-done
	if out.err != nil {
		return fmt.Errorf("%s: %w", path, out.err)
	}
	res := out.res

	if !extractQuiet {
		ui.Section(fmt.Sprintf("Payroll %s", res.Payroll.Period().LongName()))
		ui.EmployeeTable(res.Payroll)
	}
	ui.Section("Summary")
	ui.SummaryTable(res.Summary(), symbol)
	if !extractQuiet {
		ui.Section("Diagnostics")
		ui.ReportTable(res.Report)
		for _, w := range warnings {
			ui.Warning("%s", w)
		}
	}

	if store != nil {
		if err := save(ctx, store, res); err != nil {
			return err
		}
	}
	return nil
}

func extractMany(ctx context.Context, service *extract.Service, store *storage.Store, paths []string, concurrency int) error {
	var bar *ui.ProgressBar
	if !extractQuiet {
		bar = ui.NewProgressBar(len(paths), "Extracting")
	}

	items, runErr := extract.NewBatch(service, concurrency).
		OnDone(func(extract.BatchItem) {
			if bar != nil {
				bar.Add(1)
			}
		}).
		Run(ctx, paths)
	if bar != nil {
		bar.Finish()
	}

	rows := make([][]string, 0, len(items))
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			rows = append(rows, []string{item.Source, "-", "-", "-", "-", errorKind(item.Err)})
			continue
		}
		s := item.Result.Summary()
		status := "ok"
		if item.Result.Report.CacheHit {
			status = "cached"
		}
		rows = append(rows, []string{
			item.Source, s.Period.String(), fmt.Sprint(s.EmployeeCount),
			s.TotalGross.Format(), s.TotalNet.Format(), status,
		})
	}

	ui.Section("Documents")
	ui.Table([]string{"Source", "Period", "Employees", "Gross", "Net", "Status"}, rows)

	for _, item := range items {
		if item.Err != nil {
			ui.Error("%s: %v", item.Source, item.Err)
		}
	}

	if store != nil {
		for _, item := range items {
			if item.Err != nil {
				continue
			}
			if err := save(ctx, store, item.Result); err != nil {
				return err
			}
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(items))
	}
	return nil
}

func save(ctx context.Context, store *storage.Store, res *extract.Result) error {
	meta := domain.SaveMeta{RunID: res.Report.RunID, Source: res.Report.Source}
	if err := store.Payrolls.Save(ctx, res.Payroll, meta); err != nil {
		return fmt.Errorf("save payroll %s: %w", res.Payroll.Period(), err)
	}
	ui.Success("Saved payroll %s (%d employees)", res.Payroll.Period(), res.Payroll.Len())
	return nil
}

func describeEvent(ev domain.StreamEvent) string {
	switch ev.Type {
	case domain.EventDocumentRead:
		return "Detecting period"
	case domain.EventPeriodDetected:
		return "Extracting employees"
	case domain.EventEmployeeParsed:
		if e, ok := ev.Payload.(domain.Employee); ok {
			return "Parsed " + e.ID
		}
	case domain.EventComplete:
		return "Done"
	}
	return string(ev.Type)
}

func errorKind(err error) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if kind := domain.TypeOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
