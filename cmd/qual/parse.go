package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mscrnt/ssdqual/pkg/cdi"
)

func parseCmd() *cobra.Command {
	var (
		outDir string
		strict bool
		jobs   int
	)

	cmd := &cobra.Command{
		Use:   "parse <report.txt>...",
		Short: "Convert exported CrystalDiskInfo reports to JSON snapshots",
		Long: `Parse one or more CrystalDiskInfo plaintext reports and write each as a
JSON snapshot next to the report (or into --out-dir).

Examples:
  # Parse a report exported by hand
  qual parse testlog/DiskInfo.txt

  # Parse several reports into one directory; reports sharing a file name
  # are written as <parent>_<name>.json (before_DiskInfo.json, after_DiskInfo.json)
  qual parse before/DiskInfo.txt after/DiskInfo.txt --out-dir snapshots`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := cdi.Parser{Strict: strict, Logger: slog.Default()}
			outputs, err := snapshotPaths(args, outDir)
			if err != nil {
				return err
			}
			disks := make([]int, len(args))

			g := new(errgroup.Group)
			if jobs > 0 {
				g.SetLimit(jobs)
			}
			for i, txtPath := range args {
				i, txtPath := i, txtPath
				g.Go(func() error {
					rec, err := parser.ParseFileAndPersist(txtPath, outputs[i])
					if err != nil {
						return fmt.Errorf("failed to parse %s: %w", txtPath, err)
					}
					disks[i] = len(rec.Disks)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, txtPath := range args {
				fmt.Fprintf(out, "%s -> %s (%d disks)\n", txtPath, outputs[i], disks[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for the JSON snapshots (default: beside each report)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a report lists no disks")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Maximum reports parsed at once (0 = unlimited)")

	return cmd
}

// snapshotPathFor maps DiskInfo.txt to DiskInfo.json, optionally in dir
func snapshotPathFor(txtPath, dir string) string {
	base := strings.TrimSuffix(filepath.Base(txtPath), filepath.Ext(txtPath)) + ".json"
	if dir == "" {
		dir = filepath.Dir(txtPath)
	}
	return filepath.Join(dir, base)
}

// snapshotPaths maps every report to a distinct snapshot path. Reports that
// would land on the same file are prefixed with their parent directory name.
func snapshotPaths(txtPaths []string, dir string) ([]string, error) {
	outputs := make([]string, len(txtPaths))
	seen := make(map[string]int, len(txtPaths))
	for i, p := range txtPaths {
		outputs[i] = snapshotPathFor(p, dir)
		seen[filepath.Clean(outputs[i])]++
	}

	for i, p := range txtPaths {
		if seen[filepath.Clean(outputs[i])] < 2 {
			continue
		}
		parent := filepath.Base(filepath.Dir(p))
		if parent == "." || parent == string(filepath.Separator) {
			continue
		}
		outputs[i] = filepath.Join(filepath.Dir(outputs[i]), parent+"_"+filepath.Base(outputs[i]))
	}

	taken := make(map[string]string, len(txtPaths))
	for i, out := range outputs {
		key := filepath.Clean(out)
		if prev, ok := taken[key]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, txtPaths[i], out)
		}
		taken[key] = txtPaths[i]
	}
	return outputs, nil
}
