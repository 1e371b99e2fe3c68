package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/db"
	"github.com/mscrnt/ssdqual/pkg/schedule"
	"github.com/mscrnt/ssdqual/pkg/tool"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage capture schedules",
		Long:  "Create, manage, and run scheduled snapshot captures",
	}

	cmd.AddCommand(scheduleAddCmd())
	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleShowCmd())
	cmd.AddCommand(scheduleEnableCmd())
	cmd.AddCommand(scheduleDisableCmd())
	cmd.AddCommand(scheduleRemoveCmd())
	cmd.AddCommand(scheduleStartCmd())

	return cmd
}

func scheduleAddCmd() *cobra.Command {
	var (
		name        string
		description string
		cronExpr    string
		toolName    string
		prefix      string
		drive       string
		config      map[string]string
		enabled     bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new schedule",
		Long: `Add a capture schedule with cron-style timing.

Cron expression format:
  minute hour day-of-month month day-of-week

The prefix may contain {{time}}, expanded at each capture (20060102_150405).

Examples:
  # Snapshot every hour during a burn-in
  qual schedule add --name burn-in --cron "0 * * * *" --prefix "Hourly_{{time}}_"

  # Nightly snapshot of the C: drive values with a custom log directory
  qual schedule add --name nightly --cron "0 2 * * *" --prefix "Nightly_{{time}}_" --drive C: --config log_path=D:/qual/testlog`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := tool.Get(toolName)
			if err != nil {
				return err
			}

			params := db.JSONData{}
			for k, v := range parseConfigValues(config) {
				params[k] = v
			}

			probe := t.DefaultParams()
			if probe.Config == nil {
				probe.Config = map[string]interface{}{}
			}
			for k, v := range params {
				probe.Config[k] = v
			}
			probe.Prefix = schedule.ExpandPrefix(prefix, time.Now())
			if err := t.ValidateParams(probe); err != nil {
				return fmt.Errorf("invalid parameters: %w", err)
			}
			if drive != "" {
				params["drive"] = drive
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			sched := &schedule.Schedule{
				Name:        name,
				Description: description,
				CronExpr:    cronExpr,
				Tool:        toolName,
				Prefix:      prefix,
				Params:      params,
				Enabled:     enabled,
			}
			if err := schedule.NewStore(database).Create(sched); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created schedule '%s' (ID: %d)\n", sched.Name, sched.ID)
			fmt.Fprintf(out, "Cron: %s\n", sched.CronExpr)
			fmt.Fprintf(out, "Tool: %s\n", sched.Tool)
			if sched.NextRunTime != nil {
				fmt.Fprintf(out, "Next run: %s\n", sched.NextRunTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Schedule name (required)")
	cmd.Flags().StringVar(&description, "desc", "", "Schedule description")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (required)")
	cmd.Flags().StringVarP(&toolName, "tool", "t", "diskinfo", "Tool to run")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Snapshot prefix; may contain {{time}}")
	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Record values of this drive only")
	cmd.Flags().StringToStringVarP(&config, "config", "c", map[string]string{}, "Tool configuration (key=value)")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Enable schedule immediately")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cron")

	return cmd
}

func scheduleListCmd() *cobra.Command {
	var (
		all      bool
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			filter := schedule.Filter{}
			if !all {
				enabled := !disabled
				filter.Enabled = &enabled
			}

			schedules, err := schedule.NewStore(database).List(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(schedules) == 0 {
				fmt.Fprintln(out, "No schedules found")
				return nil
			}

			fmt.Fprintf(out, "%-4s %-20s %-10s %-16s %-8s %-20s\n",
				"ID", "Name", "Tool", "Cron", "Enabled", "Next Run")
			fmt.Fprintln(out, strings.Repeat("-", 84))
			for _, sched := range schedules {
				nextRun := "N/A"
				if sched.NextRunTime != nil {
					nextRun = sched.NextRunTime.Format("2006-01-02 15:04")
					if sched.IsOverdue() {
						nextRun += " (overdue)"
					}
				}
				fmt.Fprintf(out, "%-4d %-20s %-10s %-16s %-8v %-20s\n",
					sched.ID, truncate(sched.Name, 20), sched.Tool, sched.CronExpr, sched.Enabled, nextRun)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Show all schedules")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Show only disabled schedules")

	return cmd
}

// findSchedule resolves an ID or a name
func findSchedule(store *schedule.Store, identifier string) (*schedule.Schedule, error) {
	if id, err := parseInt64(identifier); err == nil {
		return store.Get(id)
	}
	return store.GetByName(identifier)
}

func scheduleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			sched, err := findSchedule(schedule.NewStore(database), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schedule: %s (ID: %d)\n", sched.Name, sched.ID)
			if sched.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", sched.Description)
			}
			fmt.Fprintf(out, "Tool: %s\n", sched.Tool)
			fmt.Fprintf(out, "Prefix: %s\n", sched.Prefix)
			fmt.Fprintf(out, "Cron Expression: %s\n", sched.CronExpr)
			fmt.Fprintf(out, "Enabled: %v\n", sched.Enabled)
			fmt.Fprintf(out, "Created: %s\n", sched.CreatedAt.Format("2006-01-02 15:04:05"))

			if sched.LastRunTime != nil {
				fmt.Fprintf(out, "\nLast Run: %s\n", sched.LastRunTime.Format("2006-01-02 15:04:05"))
				if sched.LastRunID != nil {
					fmt.Fprintf(out, "Last Run ID: %d\n", *sched.LastRunID)
				}
			} else {
				fmt.Fprintf(out, "\nLast Run: Never\n")
			}
			if sched.NextRunTime != nil {
				fmt.Fprintf(out, "Next Run: %s", sched.NextRunTime.Format("2006-01-02 15:04:05"))
				if sched.IsOverdue() {
					fmt.Fprint(out, " (OVERDUE)")
				}
				fmt.Fprintln(out)
			}

			if len(sched.Params) > 0 {
				keys := make([]string, 0, len(sched.Params))
				for k := range sched.Params {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintf(out, "\nParameters:\n")
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, sched.Params[k])
				}
			}
			return nil
		},
	}
}

func scheduleEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id|name>",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleSchedule(cmd, args[0], true)
		},
	}
}

func scheduleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id|name>",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleSchedule(cmd, args[0], false)
		},
	}
}

func toggleSchedule(cmd *cobra.Command, identifier string, enable bool) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	store := schedule.NewStore(database)
	sched, err := findSchedule(store, identifier)
	if err != nil {
		return err
	}

	if enable {
		if err := store.Enable(sched.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Enabled schedule '%s'\n", sched.Name)
		return nil
	}
	if err := store.Disable(sched.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Disabled schedule '%s'\n", sched.Name)
	return nil
}

func scheduleRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <id|name>",
		Short: "Remove a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			store := schedule.NewStore(database)
			sched, err := findSchedule(store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "Delete schedule '%s' (ID: %d)? [y/N] ", sched.Name, sched.ID)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}

			if err := store.Delete(sched.ID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted schedule '%s'\n", sched.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func scheduleStartCmd() *cobra.Command {
	var checkInterval time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long: `Start the scheduler daemon. It loads every enabled schedule, captures
snapshots on their cron timing, records each run in the database, and keeps
running until interrupted. Overdue schedules are picked up every
--check-interval.

Examples:
  qual schedule start
  qual schedule start --check-interval 30s --log-file scheduler.log`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			runner := schedule.NewRunner(database, slog.Default())
			if err := runner.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(checkInterval)
			defer ticker.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Scheduler started. Press Ctrl+C to stop.")

			for {
				select {
				case <-ctx.Done():
					slog.Info("received shutdown signal")
					runner.Stop()
					return nil
				case <-ticker.C:
					if err := runner.CheckDue(); err != nil {
						slog.Error("failed to check due schedules", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&checkInterval, "check-interval", 60*time.Second, "Interval to check for overdue schedules")

	return cmd
}
