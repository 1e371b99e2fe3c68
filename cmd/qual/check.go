package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mscrnt/ssdqual/pkg/cdi"
	"github.com/mscrnt/ssdqual/pkg/db"
)

// errCheckFailed makes the process exit non-zero once the verdict was printed
var errCheckFailed = errors.New("check failed")

// checkFlags are shared by every check subcommand
type checkFlags struct {
	drive    string
	attrs    []string
	noRecord bool
}

func (f *checkFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.drive, "drive", "d", "", "Drive letter selecting the disk (required)")
	fs.StringArrayVarP(&f.attrs, "attr", "a", nil, "SMART attribute name (repeatable, required)")
	fs.BoolVar(&f.noRecord, "no-record", false, "Do not store the verdict in the history database")
}

func (f *checkFlags) require(cmd *cobra.Command) {
	_ = cmd.MarkFlagRequired("drive")
	_ = cmd.MarkFlagRequired("attr")
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare SMART raw values",
		Long: `Evaluate pass/fail predicates over SMART raw values. Snapshots are given as
JSON files or as prefixes in the configured log directory. Every verdict is
recorded in the history database; a failed verdict exits with status 1.`,
	}

	cmd.AddCommand(checkEqualsCmd())
	cmd.AddCommand(checkNoIncreaseCmd())
	cmd.AddCommand(checkDeltaCmd())

	return cmd
}

func checkEqualsCmd() *cobra.Command {
	var (
		flags    checkFlags
		expected int64
	)

	cmd := &cobra.Command{
		Use:   "equals <snapshot>",
		Short: "Pass when every attribute equals the expected value",
		Long: `Pass when every named attribute equals the expected value. A missing
attribute fails.

Examples:
  qual check equals After_ --drive C: --attr "Media and Data Integrity Errors" --expected 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rec, path, err := resolveSnapshot(cfg.Store(), args[0])
			if err != nil {
				return err
			}

			passed, msg, err := cdi.NewComparator(slog.Default()).AssertEquals(rec, flags.drive, flags.attrs, expected)
			if err != nil {
				return err
			}
			return finishCheck(cmd, flags, &db.Check{
				Kind:      db.CheckEquals,
				Expected:  expected,
				AfterPath: path,
				Passed:    passed,
				Message:   msg,
			})
		},
	}

	flags.bind(cmd.Flags())
	cmd.Flags().Int64VarP(&expected, "expected", "e", 0, "Expected raw value")
	flags.require(cmd)

	return cmd
}

func checkNoIncreaseCmd() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "no-increase <before> <after>",
		Short: "Pass when every attribute is unchanged between two snapshots",
		Long: `Pass when every named attribute has the same raw value in both snapshots.
An attribute missing from a snapshot counts as 0.

Examples:
  qual check no-increase Before_ After_ --drive C: --attr "Unsafe Shutdowns"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, after, beforePath, afterPath, err := loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			passed, msg, err := cdi.NewComparator(slog.Default()).AssertNoIncrease(before, after, flags.drive, flags.attrs)
			if err != nil {
				return err
			}
			return finishCheck(cmd, flags, &db.Check{
				Kind:       db.CheckNoIncrease,
				BeforePath: beforePath,
				AfterPath:  afterPath,
				Passed:     passed,
				Message:    msg,
			})
		},
	}

	flags.bind(cmd.Flags())
	flags.require(cmd)

	return cmd
}

func checkDeltaCmd() *cobra.Command {
	var (
		flags checkFlags
		delta int64
	)

	cmd := &cobra.Command{
		Use:   "delta <before> <after>",
		Short: "Pass when every attribute changed by exactly the expected delta",
		Long: `Pass when after - before equals the expected delta for every named
attribute. An attribute missing from a snapshot counts as 0.

Examples:
  # One power cycle happened between the snapshots
  qual check delta Before_ After_ --drive C: --attr "Power Cycles" --delta 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, after, beforePath, afterPath, err := loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			passed, msg, err := cdi.NewComparator(slog.Default()).AssertDelta(before, after, flags.drive, flags.attrs, delta)
			if err != nil {
				return err
			}
			return finishCheck(cmd, flags, &db.Check{
				Kind:       db.CheckDelta,
				Expected:   delta,
				BeforePath: beforePath,
				AfterPath:  afterPath,
				Passed:     passed,
				Message:    msg,
			})
		},
	}

	flags.bind(cmd.Flags())
	cmd.Flags().Int64Var(&delta, "delta", 0, "Expected after - before difference")
	flags.require(cmd)

	return cmd
}

func loadPair(beforeRef, afterRef string) (before, after *cdi.Record, beforePath, afterPath string, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, "", "", err
	}
	store := cfg.Store()
	before, beforePath, err = resolveSnapshot(store, beforeRef)
	if err != nil {
		return nil, nil, "", "", err
	}
	after, afterPath, err = resolveSnapshot(store, afterRef)
	if err != nil {
		return nil, nil, "", "", err
	}
	return before, after, beforePath, afterPath, nil
}

// finishCheck prints and records the verdict
func finishCheck(cmd *cobra.Command, flags checkFlags, check *db.Check) error {
	check.Drive = flags.drive
	check.Attributes = db.StringList(flags.attrs)

	fmt.Fprintln(cmd.OutOrStdout(), check.Message)

	if !flags.noRecord {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()
		if err := database.CreateCheck(check); err != nil {
			return err
		}
	}

	if !check.Passed {
		return errCheckFailed
	}
	return nil
}
