package cdi

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiskInfo installs a shell script standing in for DiskInfo64.exe
func fakeDiskInfo(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "DiskInfo64.exe")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"+script), 0o755))
	return exe
}

func TestCopyExitMonitorExport(t *testing.T) {
	fixture, err := filepath.Abs(filepath.Join("testdata", "DiskInfo.txt"))
	require.NoError(t, err)
	exe := fakeDiskInfo(t, `[ "$1" = "/CopyExit" ] || exit 2
cp "`+fixture+`" "$(dirname "$0")/DiskInfo.txt"
`)

	m := &CopyExitMonitor{Timeout: 2 * time.Second, Interval: 20 * time.Millisecond}
	ctx := context.Background()
	require.NoError(t, m.Open(ctx, exe))

	dst := filepath.Join(t.TempDir(), "out", "Before_DiskInfo.txt")
	require.NoError(t, m.ExportText(ctx, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, loadFixture(t), string(got))

	assert.ErrorIs(t, m.CaptureScreenshot(ctx, ScreenshotRequest{}), ErrScreenshotUnsupported)
	require.NoError(t, m.Close())
	assert.Error(t, m.ExportText(ctx, dst), "export after close")
}

func TestCopyExitMonitorToolFails(t *testing.T) {
	exe := fakeDiskInfo(t, "exit 3\n")
	m := &CopyExitMonitor{Timeout: time.Second}
	ctx := context.Background()
	require.NoError(t, m.Open(ctx, exe))

	err := m.ExportText(ctx, filepath.Join(t.TempDir(), "DiskInfo.txt"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotElevated))
	assert.Contains(t, err.Error(), "/CopyExit")
}

func TestCopyExitMonitorReportNeverAppears(t *testing.T) {
	exe := fakeDiskInfo(t, "exit 0\n")
	m := &CopyExitMonitor{Timeout: 100 * time.Millisecond, Interval: 20 * time.Millisecond}
	ctx := context.Background()
	require.NoError(t, m.Open(ctx, exe))

	err := m.ExportText(ctx, filepath.Join(t.TempDir(), "DiskInfo.txt"))
	assert.ErrorIs(t, err, ErrReportMissing)
}

func TestCopyExitMonitorOpenMissing(t *testing.T) {
	m := NewCopyExitMonitor(DefaultConfig(), nil)
	err := m.Open(context.Background(), filepath.Join(t.TempDir(), "DiskInfo64.exe"))
	assert.Error(t, err)

	err = m.Open(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestElevationRequired(t *testing.T) {
	assert.True(t, elevationRequired(syscall.Errno(errorElevationRequired)))
	assert.True(t, elevationRequired(&os.PathError{Op: "fork/exec", Path: "x", Err: syscall.Errno(errorElevationRequired)}))
	assert.False(t, elevationRequired(errors.New("boom")))
}
