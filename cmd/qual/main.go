package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/internal/logger"
	"github.com/mscrnt/ssdqual/internal/version"
)

var (
	// Build variables set by ldflags
	buildVersion string
	buildCommit  string
	buildTime    string

	// Global flags
	logLevel      string
	logFile       string
	configFile    string
	configSection string
	configSet     map[string]string

	closeLog = noClose

	// setupLogger is replaced in tests
	setupLogger = logger.Setup
)

func noClose() error { return nil }

func main() {
	if err := runRoot(newRootCmd()); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// runRoot executes cmd and closes the log file afterwards, also when the
// command failed
func runRoot(cmd *cobra.Command) error {
	defer func() {
		_ = closeLog()
		closeLog = noClose
	}()
	return cmd.Execute()
}

func newRootCmd() *cobra.Command {
	info := version.Resolve(buildVersion, buildCommit, buildTime)

	rootCmd := &cobra.Command{
		Use:   "qual",
		Short: "SSD qualification bench",
		Long: `qual captures CrystalDiskInfo SMART snapshots, compares raw attribute
values between snapshots, and keeps a history of captures and verdicts.`,
		Version:       info.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log, closeFn, err := setupLogger(logger.Options{Level: logLevel, File: logFile})
			if err != nil {
				return err
			}
			slog.SetDefault(log)
			closeLog = closeFn
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "Also append logs to this file")
	flags.StringVar(&configFile, "config", "", "YAML, JSON or TOML config file")
	flags.StringVar(&configSection, "section", "cdi", "Config file section holding the CrystalDiskInfo settings")
	flags.StringToStringVar(&configSet, "set", map[string]string{}, "Override a config key (key=value)")

	rootCmd.AddCommand(versionCmd(info))
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(captureCmd())
	rootCmd.AddCommand(valuesCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(reportCmd())

	return rootCmd
}

func versionCmd(info version.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), info.Detailed())
		},
	}
}
