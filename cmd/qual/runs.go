package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/db"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded captures",
	}

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(checksListCmd())

	return cmd
}

func runsListCmd() *cobra.Command {
	var (
		toolName string
		prefix   string
		limit    int
		success  bool
		failed   bool
		since    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captures",
		Long: `List captures from the database, newest first.

Examples:
  # List all captures
  qual runs list

  # Only the Before_ snapshots from the last 7 days
  qual runs list --prefix Before_ --since 7d

  # Only failed captures
  qual runs list --failed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			filter := db.RunFilter{
				Tool:   toolName,
				Prefix: prefix,
				Limit:  limit,
			}
			if success && !failed {
				v := true
				filter.Success = &v
			} else if failed && !success {
				v := false
				filter.Success = &v
			}
			if since != "" {
				d, err := parseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration: %w", err)
				}
				sinceTime := time.Now().Add(-d)
				filter.StartTime = &sinceTime
			}

			runs, err := database.ListRuns(filter)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found")
				return nil
			}

			fmt.Fprintf(out, "%-6s %-10s %-24s %-20s %-10s %-8s\n",
				"ID", "Tool", "Prefix", "Start Time", "Duration", "Status")
			fmt.Fprintln(out, strings.Repeat("-", 82))

			for _, run := range runs {
				duration := "-"
				if run.EndTime != nil {
					duration = formatDuration(run.Duration())
				}
				fmt.Fprintf(out, "%-6d %-10s %-24s %-20s %-10s %-8s\n",
					run.ID,
					run.Tool,
					truncate(run.Prefix, 24),
					run.StartTime.Format("2006-01-02 15:04:05"),
					duration,
					run.GetStatus(),
				)
			}
			fmt.Fprintf(out, "\nTotal: %d runs\n", len(runs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "Filter by tool")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Filter by snapshot prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&success, "success", false, "Show only successful runs")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only failed runs")
	cmd.Flags().StringVar(&since, "since", "", "Show runs since duration (e.g., 24h, 7d)")

	return cmd
}

func runsShowCmd() *cobra.Command {
	var drive string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a capture and its SMART values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := parseInt64(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %s", args[0])
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			run, err := database.GetRun(runID)
			if err != nil {
				return err
			}
			values, err := database.ListValues(db.ValueFilter{RunID: &runID, Drive: drive})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run ID: %d\n", run.ID)
			fmt.Fprintf(out, "Tool: %s\n", run.Tool)
			fmt.Fprintf(out, "Prefix: %s\n", run.Prefix)
			fmt.Fprintf(out, "Start Time: %s\n", run.StartTime.Format("2006-01-02 15:04:05"))
			if run.EndTime != nil {
				fmt.Fprintf(out, "End Time: %s\n", run.EndTime.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Duration: %.2f seconds\n", run.Duration().Seconds())
			} else {
				fmt.Fprintf(out, "End Time: (still running)\n")
			}
			fmt.Fprintf(out, "Status: %s\n", run.GetStatus())
			if run.SnapshotPath != "" {
				fmt.Fprintf(out, "Snapshot: %s\n", run.SnapshotPath)
			}
			if run.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", run.Error)
			}

			if len(run.Params) > 0 {
				fmt.Fprintf(out, "\nParameters:\n")
				for k, v := range run.Params {
					fmt.Fprintf(out, "  %s: %v\n", k, v)
				}
			}

			if len(values) > 0 {
				fmt.Fprintf(out, "\nValues:\n")
				for _, v := range values {
					fmt.Fprintf(out, "  %-6s %-45s %-14d %s\n", v.Drive, v.Attribute, v.Raw, v.Hex())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Show values of this drive only")

	return cmd
}

func checksListCmd() *cobra.Command {
	var (
		kind   string
		drive  string
		failed bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List recorded verdicts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			filter := db.CheckFilter{Kind: db.CheckKind(kind), Drive: drive, Limit: limit}
			if failed {
				v := false
				filter.Passed = &v
			}
			checks, err := database.ListChecks(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(checks) == 0 {
				fmt.Fprintln(out, "No checks found")
				return nil
			}
			for _, c := range checks {
				fmt.Fprintf(out, "%-5d %-20s %-12s %-6s %-7s %s\n",
					c.ID, c.CreatedAt.Format("2006-01-02 15:04:05"), c.Kind, c.Drive,
					formatStatus(c.Passed), c.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by kind (equals, no-increase, delta)")
	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Filter by drive")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only failed verdicts")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of verdicts to show")

	return cmd
}
