package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/payroll-extract/cmd/payroll-extract/ui"
	"github.com/spherical/payroll-extract/internal/storage"
)

var deleteForce bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved payrolls, newest period first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Payrolls.List(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			ui.Info("No payrolls saved")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.Period.String(), fmt.Sprint(r.EmployeeCount),
				r.TotalGross.Format(), r.TotalNet.Format(),
				r.Source, r.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		ui.Table([]string{"Period", "Employees", "Gross", "Net", "Source", "Updated"}, rows)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <MM/YYYY>",
	Short: "Show a saved payroll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		period, err := periodArg(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		payroll, err := store.Payrolls.FindByPeriod(ctx, period)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no payroll saved for %s", period)
		}
		if err != nil {
			return err
		}

		ui.Section(fmt.Sprintf("Payroll %s", period.LongName()))
		ui.EmployeeTable(payroll)
		ui.Section("Summary")
		ui.SummaryTable(payroll.Summary(), cfg.Extraction.CurrencySymbol)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <MM/YYYY>",
	Short: "Delete a saved payroll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		period, err := periodArg(args[0])
		if err != nil {
			return err
		}

		if !deleteForce {
			ok, err := ui.Confirm(cmd.InOrStdin(), fmt.Sprintf("Delete payroll %s?", period), false)
			if err != nil {
				return fmt.Errorf("read confirmation: %w", err)
			}
			if !ok {
				ui.Info("Aborted")
				return nil
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Payrolls.Delete(ctx, period); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no payroll saved for %s", period)
			}
			return err
		}
		ui.Success("Deleted payroll %s", period)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Message("payroll-extract version %s", Version)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "delete without asking")
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, versionCmd)
}
