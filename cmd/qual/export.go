package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/db"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export captures and verdicts",
		Long:  "Export recorded SMART values or verdicts as CSV or JSON",
	}

	cmd.AddCommand(exportFormatCmd(db.ExportFormatCSV))
	cmd.AddCommand(exportFormatCmd(db.ExportFormatJSON))

	return cmd
}

func exportFormatCmd(format db.ExportFormat) *cobra.Command {
	var (
		runID  int64
		output string
		all    bool
		checks bool
	)

	cmd := &cobra.Command{
		Use:   string(format),
		Short: fmt.Sprintf("Export to %s", format),
		Long: fmt.Sprintf(`Export recorded data to %[1]s.

Examples:
  # Values of one run
  qual export %[1]s --run 42 --out run42.%[1]s

  # Every recorded verdict
  qual export %[1]s --checks`, format),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == 0 && !checks && !(all && format == db.ExportFormatCSV) {
				if format == db.ExportFormatCSV {
					return fmt.Errorf("one of --run, --all or --checks must be specified")
				}
				return fmt.Errorf("one of --run or --checks must be specified")
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if runID != 0 {
				if _, err := database.GetRun(runID); err != nil {
					return err
				}
			}

			w, closeOut, err := outputWriter(cmd, output)
			if err != nil {
				return err
			}
			defer func() { _ = closeOut() }()

			switch {
			case checks && format == db.ExportFormatCSV:
				err = database.ExportChecksCSV(w, db.CheckFilter{})
			case checks:
				err = database.ExportChecksJSON(w, db.CheckFilter{})
			case all:
				err = database.ExportAllCSV(w)
			case format == db.ExportFormatCSV:
				err = database.ExportCSV(w, runID)
			default:
				err = database.ExportJSON(w, runID)
			}
			if err != nil {
				return fmt.Errorf("failed to export %s: %w", format, err)
			}

			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			}
			return closeOut()
		},
	}

	cmd.Flags().Int64Var(&runID, "run", 0, "Run ID to export")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&checks, "checks", false, "Export recorded verdicts instead of values")
	if format == db.ExportFormatCSV {
		cmd.Flags().BoolVar(&all, "all", false, "Export all runs")
	}

	return cmd
}
