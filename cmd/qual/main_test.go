package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/ssdqual/internal/logger"
	"github.com/mscrnt/ssdqual/pkg/cdi"
	"github.com/mscrnt/ssdqual/pkg/db"
)

const fixture = "../../pkg/cdi/testdata/DiskInfo.txt"

// execute runs the root command against a temp database
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := runRoot(cmd)
	return buf.String(), err
}

// setupBench points the database at a temp dir and writes Before_/After_
// snapshots of the fixture, with one extra power cycle in After_
func setupBench(t *testing.T) (logDir, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	logDir = filepath.Join(dir, "testlog")
	dbPath = filepath.Join(dir, "qual.db")
	t.Setenv("QUAL_DB_PATH", dbPath)

	store := cdi.NewStore(logDir, "DiskInfo.json")
	rec, err := cdi.ParseFile(fixture)
	require.NoError(t, err)
	_, err = store.Save("Before_", rec)
	require.NoError(t, err)

	disk, err := rec.FindDisk("C:")
	require.NoError(t, err)
	for i := range disk.Smart {
		if disk.Smart[i].Name == "Power Cycles" {
			disk.Smart[i].RawValue = "000000000142"
		}
	}
	_, err = store.Save("After_", rec)
	require.NoError(t, err)
	return logDir, dbPath
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "OS/Arch:")
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)

	first := filepath.Join(dir, "a", "DiskInfo.txt")
	second := filepath.Join(dir, "b", "Other.txt")
	for _, p := range []string{first, second} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}

	outDir := filepath.Join(dir, "snapshots")
	out, err := execute(t, "parse", first, second, "--out-dir", outDir, "-j", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 disks)")

	rec, err := cdi.ReadRecord(filepath.Join(outDir, "Other.json"))
	require.NoError(t, err)
	assert.Len(t, rec.Disks, 2)
	assert.FileExists(t, filepath.Join(outDir, "DiskInfo.json"))
}

func TestParseCommandSameNameReports(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)

	before := filepath.Join(dir, "before", "DiskInfo.txt")
	after := filepath.Join(dir, "after", "DiskInfo.txt")
	for _, p := range []string{before, after} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}

	outDir := filepath.Join(dir, "snapshots")
	_, err = execute(t, "parse", before, after, "--out-dir", outDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"before_DiskInfo.json", "after_DiskInfo.json"}, names)
}

func TestSnapshotPaths(t *testing.T) {
	paths, err := snapshotPaths([]string{
		filepath.Join("before", "DiskInfo.txt"),
		filepath.Join("after", "DiskInfo.txt"),
		filepath.Join("after", "Other.txt"),
	}, "out")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("out", "before_DiskInfo.json"),
		filepath.Join("out", "after_DiskInfo.json"),
		filepath.Join("out", "Other.json"),
	}, paths)

	paths, err = snapshotPaths([]string{
		filepath.Join("before", "DiskInfo.txt"),
		filepath.Join("after", "DiskInfo.txt"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("before", "DiskInfo.json"),
		filepath.Join("after", "DiskInfo.json"),
	}, paths)

	same := filepath.Join("a", "DiskInfo.txt")
	_, err = snapshotPaths([]string{same, same}, "out")
	require.Error(t, err)
}

func TestParseCommandMissingFile(t *testing.T) {
	_, err := execute(t, "parse", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValuesAndInfoCommands(t *testing.T) {
	logDir, _ := setupBench(t)

	out, err := execute(t, "--set", "log_path="+logDir, "values", "Before_", "--drive", "C:", "--attr", "Power Cycles", "--attr", "Nope")
	require.NoError(t, err)
	assert.Regexp(t, `Power Cycles\s+321`, out)
	assert.Regexp(t, `Nope\s+missing`, out)

	out, err = execute(t, "values", filepath.Join(logDir, "After_DiskInfo.json"), "--drive", "C:")
	require.NoError(t, err)
	assert.Regexp(t, `Power Cycles\s+322`, out)
	assert.Regexp(t, `Power On Hours\s+1234`, out)

	out, err = execute(t, "--set", "log_path="+logDir, "info", "Before_", "--drive", "C:", "--key", "Model")
	require.NoError(t, err)
	assert.Equal(t, "Samsung SSD 980 PRO 1TB\n", out)

	_, err = execute(t, "--set", "log_path="+logDir, "info", "Before_", "--drive", "Z:")
	assert.ErrorIs(t, err, cdi.ErrDriveNotFound)
}

func TestCheckCommands(t *testing.T) {
	logDir, dbPath := setupBench(t)
	set := "log_path=" + logDir

	out, err := execute(t, "--set", set, "check", "delta", "Before_", "After_",
		"--drive", "C:", "--attr", "Power Cycles", "--delta", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Check SMART Passed Power Cycles: 322 - 321 = 1 == 1")

	out, err = execute(t, "--set", set, "check", "no-increase", "Before_", "After_",
		"--drive", "C:", "--attr", "Power Cycles")
	require.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out, "Check SMART Failed Power Cycles: 321 != 322")

	_, err = execute(t, "--set", set, "check", "equals", "After_",
		"--drive", "C:", "--attr", "Power On Hours", "--expected", "1234", "--no-record")
	require.NoError(t, err)

	database, err := db.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	checks, err := database.ListChecks(db.CheckFilter{})
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, db.CheckNoIncrease, checks[0].Kind)
	assert.False(t, checks[0].Passed)
	assert.Equal(t, db.CheckDelta, checks[1].Kind)
	assert.True(t, checks[1].Passed)
	assert.Equal(t, int64(1), checks[1].Expected)
	assert.Equal(t, db.StringList{"Power Cycles"}, checks[1].Attributes)
	assert.Equal(t, filepath.Join(logDir, "Before_DiskInfo.json"), checks[1].BeforePath)

	out, err = execute(t, "export", "csv", "--checks")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Check ID"))
}

func TestFailedCheckClosesLogFile(t *testing.T) {
	logDir, _ := setupBench(t)
	logPath := filepath.Join(t.TempDir(), "qual.log")

	closed := 0
	origSetup, origDefault := setupLogger, slog.Default()
	t.Cleanup(func() {
		setupLogger = origSetup
		slog.SetDefault(origDefault)
	})
	setupLogger = func(opts logger.Options) (*slog.Logger, func() error, error) {
		log, closeFn, err := origSetup(opts)
		return log, func() error {
			closed++
			return closeFn()
		}, err
	}

	_, err := execute(t, "--log-file", logPath, "--set", "log_path="+logDir, "check", "no-increase",
		"Before_", "After_", "--drive", "C:", "--attr", "Power Cycles", "--no-record")
	require.ErrorIs(t, err, errCheckFailed)
	assert.Equal(t, 1, closed)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Check SMART Failed Power Cycles")
}

func TestCheckRequiresFlags(t *testing.T) {
	setupBench(t)
	_, err := execute(t, "check", "equals", "After_", "--drive", "C:")
	require.Error(t, err)
}

func TestCaptureDryRun(t *testing.T) {
	setupBench(t)
	out, err := execute(t, "--set", "strict=true", "capture", "--prefix", "Before_", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would run tool: diskinfo")
	assert.Contains(t, out, "Prefix: Before_")
	assert.Contains(t, out, "strict: true")
}

func TestCaptureRejectsBadConfig(t *testing.T) {
	setupBench(t)
	_, err := execute(t, "--set", "no_such_key=1", "capture", "--prefix", "Before_", "--dry-run")
	assert.ErrorIs(t, err, cdi.ErrConfig)
}

func TestScheduleCommands(t *testing.T) {
	setupBench(t)

	out, err := execute(t, "schedule", "add", "--name", "burn-in", "--cron", "0 * * * *",
		"--prefix", "Hourly_{{time}}_", "--drive", "C:")
	require.NoError(t, err)
	assert.Contains(t, out, "Created schedule 'burn-in'")

	out, err = execute(t, "schedule", "show", "burn-in")
	require.NoError(t, err)
	assert.Contains(t, out, "Prefix: Hourly_{{time}}_")
	assert.Contains(t, out, "drive: C:")

	_, err = execute(t, "schedule", "disable", "burn-in")
	require.NoError(t, err)

	out, err = execute(t, "schedule", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No schedules found")

	out, err = execute(t, "schedule", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "burn-in")

	_, err = execute(t, "schedule", "add", "--name", "bad", "--cron", "whenever")
	require.Error(t, err)

	_, err = execute(t, "schedule", "remove", "burn-in", "--yes")
	require.NoError(t, err)
	_, err = execute(t, "schedule", "show", "burn-in")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestParseConfigValues(t *testing.T) {
	got := parseConfigValues(map[string]string{
		"save_retry_max":         "3",
		"check_interval_seconds": "0.5",
		"strict":                 "true",
		"log_path":               "D:/qual/testlog",
	})
	assert.Equal(t, map[string]interface{}{
		"save_retry_max":         3,
		"check_interval_seconds": 0.5,
		"strict":                 true,
		"log_path":               "D:/qual/testlog",
	}, got)
}

func TestSnapshotPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("testlog", "DiskInfo.json"), snapshotPathFor(filepath.Join("testlog", "DiskInfo.txt"), ""))
	assert.Equal(t, filepath.Join("out", "Before.json"), snapshotPathFor("Before.txt", "out"))
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("7d")
	require.NoError(t, err)
	assert.Equal(t, "168h0m0s", d.String())

	d, err = parseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", d.String())

	_, err = parseDuration("xd")
	require.Error(t, err)
}
