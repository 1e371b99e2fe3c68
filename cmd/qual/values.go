package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mscrnt/ssdqual/pkg/cdi"
)

func valuesCmd() *cobra.Command {
	var (
		drive string
		attrs []string
	)

	cmd := &cobra.Command{
		Use:   "values <prefix|snapshot.json>",
		Short: "Print SMART raw values from a snapshot",
		Long: `Print SMART raw values of one drive from a snapshot. The snapshot is either
a JSON file or a prefix looked up in the configured log directory.

Examples:
  # Every attribute of the C: drive in the Before_ snapshot
  qual values Before_ --drive C:

  # Selected attributes from an explicit file
  qual values testlog/After_DiskInfo.json --drive C: --attr "Power Cycles" --attr "Unsafe Shutdowns"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rec, _, err := resolveSnapshot(cfg.Store(), args[0])
			if err != nil {
				return err
			}

			comparator := cdi.NewComparator(slog.Default())
			var values map[string]int64
			names := attrs
			if len(attrs) == 0 {
				values, err = comparator.AllValues(rec, drive)
				names = make([]string, 0, len(values))
				for name := range values {
					names = append(names, name)
				}
				sort.Strings(names)
			} else {
				values, err = comparator.GetValues(rec, drive, attrs)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				v, ok := values[name]
				if !ok {
					fmt.Fprintf(out, "%-45s %s\n", name, "missing")
					continue
				}
				fmt.Fprintf(out, "%-45s %d\n", name, v)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Drive letter selecting the disk (required)")
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "Attribute name (repeatable; default all)")
	_ = cmd.MarkFlagRequired("drive")

	return cmd
}

func infoCmd() *cobra.Command {
	var (
		drive string
		key   string
	)

	cmd := &cobra.Command{
		Use:   "info <prefix|snapshot.json>",
		Short: "Print drive details from a snapshot",
		Long: `Print identification fields of one drive from a snapshot.

Examples:
  # All fields of the C: drive
  qual info Before_ --drive C:

  # A single field
  qual info Before_ --drive C: --key "Serial Number"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rec, _, err := resolveSnapshot(cfg.Store(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if key != "" {
				value, err := rec.DriveInfo(drive, key)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
				return nil
			}

			disk, err := rec.FindDisk(drive)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-28s %s\n", "DiskNum", disk.Ordinal)
			fmt.Fprintf(out, "%-28s %s\n", "Model", disk.Model)
			fmt.Fprintf(out, "%-28s %s\n", "Disk Size", disk.SizeLabel)
			fmt.Fprintf(out, "%-28s %s\n", "PhysicalDriveId", disk.PhysicalDriveID)

			keys := make([]string, 0, len(disk.Attributes))
			for k := range disk.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%-28s %s\n", k, disk.Attributes[k])
			}
			fmt.Fprintf(out, "%-28s %d\n", "SMART attributes", len(disk.Smart))
			return nil
		},
	}

	cmd.Flags().StringVarP(&drive, "drive", "d", "", "Drive letter selecting the disk (required)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Print only this field")
	_ = cmd.MarkFlagRequired("drive")

	return cmd
}
