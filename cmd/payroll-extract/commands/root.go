// Package commands implements the payroll-extract command tree.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/payroll-extract/cmd/payroll-extract/ui"
	"github.com/spherical/payroll-extract/internal/config"
	"github.com/spherical/payroll-extract/internal/domain"
	"github.com/spherical/payroll-extract/internal/storage"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "payroll-extract",
	Short: "Extract employee payroll records from PDF payroll reports",
	Long: `payroll-extract reads payroll report PDFs, detects the reference period,
extracts one record per employee with gross and net pay, and prints the
payroll with a diagnostics report. Extracted payrolls can be saved to a
SQLite or Postgres database and inspected later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return config.LoadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $PAYROLL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the configuration named by --config or $PAYROLL_CONFIG.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("PAYROLL_CONFIG")
	}
	return config.Load(path)
}

// newLogger builds the run logger. --verbose forces debug level.
func newLogger(cfg *config.Config) *domain.Logger {
	lc := cfg.LogConfig()
	if verbose {
		lc.Level = domain.LogLevelDebug
	}
	return domain.NewLoggerWithConfig(lc)
}

// openStore opens the configured payroll database.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// periodArg parses a MM/YYYY positional argument.
func periodArg(s string) (domain.Period, error) {
	p, err := domain.ParsePeriod(s)
	if err != nil {
		return domain.Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return p, nil
}
