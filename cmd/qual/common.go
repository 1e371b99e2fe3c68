package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mscrnt/ssdqual/pkg/cdi"
	"github.com/mscrnt/ssdqual/pkg/db"
)

// getDBPath returns the path to the qual database file
func getDBPath() string {
	if dbPath := os.Getenv("QUAL_DB_PATH"); dbPath != "" {
		return dbPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "qual.db"
	}

	qualDir := filepath.Join(homeDir, ".qual")
	if err := os.MkdirAll(qualDir, 0o755); err == nil {
		return filepath.Join(qualDir, "qual.db")
	}

	return "qual.db"
}

func openDB() (*db.DB, error) {
	database, err := db.Open(getDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// loadConfig resolves defaults, then --config, then --set
func loadConfig() (cdi.Config, error) {
	cfg := cdi.DefaultConfig()
	if configFile != "" {
		loaded, err := cdi.LoadConfig(configFile, cfg, cdi.LoadOptions{
			Section: configSection,
			Logger:  slog.Default(),
		})
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if len(configSet) > 0 {
		return cfg.Apply(parseConfigValues(configSet))
	}
	return cfg, nil
}

// parseConfigValues types key=value flag input: integers, floats and
// booleans become numbers and bools, everything else stays a string
func parseConfigValues(in map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if n, err := json.Number(v).Int64(); err == nil {
			out[k] = int(n)
		} else if f, err := json.Number(v).Float64(); err == nil {
			out[k] = f
		} else if v == "true" || v == "false" {
			out[k] = v == "true"
		} else {
			out[k] = v
		}
	}
	return out
}

// resolveSnapshot loads ref as a snapshot file when it names a .json file,
// otherwise as a prefix in the configured log directory
func resolveSnapshot(store *cdi.Store, ref string) (*cdi.Record, string, error) {
	path := ref
	if !strings.EqualFold(filepath.Ext(ref), ".json") {
		path = store.Path(ref)
	}
	rec, err := cdi.ReadRecord(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}
	return rec, path, nil
}

// outputWriter returns stdout for an empty path, otherwise a created file
func outputWriter(cmd interface{ OutOrStdout() io.Writer }, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path) // #nosec G304 -- output path is a user-specified file from a command line flag
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func formatStatus(success bool) string {
	if success {
		return "PASSED"
	}
	return "FAILED"
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
