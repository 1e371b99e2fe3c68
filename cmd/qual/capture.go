package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/schedule"
	"github.com/mscrnt/ssdqual/pkg/tool"
	_ "github.com/mscrnt/ssdqual/pkg/tool/diskinfo" // Register CrystalDiskInfo tool
)

func captureCmd() *cobra.Command {
	var (
		toolName string
		prefix   string
		drive    string
		timeout  time.Duration
		dryRun   bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a SMART snapshot",
		Long: `Run CrystalDiskInfo, parse its report into a prefixed JSON snapshot, and
record the run with every SMART raw value in the history database.

The prefix may contain {{time}}, expanded to the capture time (20060102_150405).

Examples:
  # Snapshot before a power-cycle test
  qual capture --prefix Before_

  # Snapshot afterwards, recording only the C: drive values
  qual capture --prefix After_ --drive C:

  # Use a config file and a custom executable location
  qual capture --config Config.yaml --set executable_path=D:/tools/DiskInfo64.exe --prefix Before_`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list {
				return listTools(cmd)
			}

			t, err := tool.Get(toolName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			params := t.DefaultParams()
			params.Config = cfg.Map()
			params.Prefix = schedule.ExpandPrefix(prefix, time.Now())
			params.Drive = drive
			params.Timeout = cfg.Timeout
			if timeout > 0 {
				params.Timeout = timeout
			}

			if err := t.ValidateParams(params); err != nil {
				return fmt.Errorf("invalid parameters: %w", err)
			}

			if dryRun {
				fmt.Fprintf(out, "Would run tool: %s\n", t.Name())
				fmt.Fprintf(out, "Prefix: %s\n", params.Prefix)
				fmt.Fprintf(out, "Timeout: %s\n", params.Timeout)
				fmt.Fprintf(out, "Config:\n")
				keys := make([]string, 0, len(params.Config))
				for k := range params.Config {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, params.Config[k])
				}
				return nil
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, result, err := schedule.Capture(ctx, database, t, params, slog.Default())
			if run != nil {
				fmt.Fprintf(out, "Run %d: %s in %s\n", run.ID, formatStatus(run.Success), formatDuration(run.Duration()))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Snapshot: %s\n", result.SnapshotPath)
			for _, v := range result.Values {
				fmt.Fprintf(out, "  %-6s %-45s %d\n", v.Drive, v.Attribute, v.Raw)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&toolName, "tool", "t", "diskinfo", "Tool to run")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Snapshot prefix, e.g. Before_")
	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Record values of this drive only")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall capture timeout (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be executed without running")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List available tools")

	return cmd
}

func listTools(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	infos := tool.Infos()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No tools registered")
		return nil
	}

	fmt.Fprintln(out, "Available tools:")
	for _, info := range infos {
		fmt.Fprintf(out, "  %-15s %s\n", info.Name, info.Description)
		for _, p := range info.Parameters {
			fmt.Fprintf(out, "      %-26s %-8s %s\n", p.Name, p.Type, p.Description)
		}
	}
	return nil
}
