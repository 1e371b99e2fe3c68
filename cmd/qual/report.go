package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/db"
	"github.com/mscrnt/ssdqual/pkg/report"
)

func reportCmd() *cobra.Command {
	var (
		output   string
		runID    int64
		latest   bool
		prefix   string
		toolName string
		compare  int64
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an HTML report",
		Long: `Generate an HTML report of one capture (SMART values grouped by drive plus
the verdicts that read its snapshot), or of two captures side by side.

Examples:
  # Report for the latest capture
  qual report --latest

  # Report for the latest After_ capture
  qual report --latest --prefix After_

  # Compare run 12 against run 10
  qual report --run 12 --compare 10 --output compare.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !latest && runID == 0 {
				return fmt.Errorf("either --latest or --run must be specified")
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if latest {
				runs, err := database.ListRuns(db.RunFilter{Tool: toolName, Prefix: prefix, Limit: 1})
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				if len(runs) == 0 {
					return fmt.Errorf("no runs found")
				}
				runID = runs[0].ID
			}

			run, err := database.GetRun(runID)
			if err != nil {
				return err
			}

			generator := report.NewGenerator(database)
			ctx := context.Background()

			var html string
			if compare != 0 {
				html, err = generator.GenerateComparisonHTML(ctx, compare, runID)
			} else {
				html, err = generator.GenerateHTML(ctx, runID)
			}
			if err != nil {
				return fmt.Errorf("failed to generate HTML report: %w", err)
			}

			if output == "" {
				timestamp := time.Now().Format("20060102_150405")
				output = fmt.Sprintf("qual_report_%d_%s.html", runID, timestamp)
			}
			if err := os.WriteFile(output, []byte(html), 0o600); err != nil {
				return fmt.Errorf("failed to write HTML file: %w", err)
			}

			absPath, _ := filepath.Abs(output)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated HTML report for run #%d\n", runID)
			fmt.Fprintf(out, "Prefix: %s\n", run.Prefix)
			fmt.Fprintf(out, "Date: %s\n", run.StartTime.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Status: %s\n", formatStatus(run.Success))
			fmt.Fprintf(out, "Output: %s\n", absPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().Int64Var(&runID, "run", 0, "Run ID to report on")
	cmd.Flags().BoolVar(&latest, "latest", false, "Use the latest run")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Filter by prefix when using --latest")
	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "Filter by tool when using --latest")
	cmd.Flags().Int64Var(&compare, "compare", 0, "Earlier run ID to compare against")

	return cmd
}
