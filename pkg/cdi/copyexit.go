package cdi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// errorElevationRequired is ERROR_ELEVATION_REQUIRED, returned by Windows
// when an executable manifests requireAdministrator
const errorElevationRequired = 740

// CopyExitMonitor produces the report without GUI automation by running
// "<exe> /CopyExit", which makes CrystalDiskInfo write DiskInfo.txt next to
// its executable and exit. Screenshots are not supported.
type CopyExitMonitor struct {
	// ReportName is the file CrystalDiskInfo writes beside the executable
	ReportName string
	// Timeout bounds how long to wait for the report after launch
	Timeout time.Duration
	// Interval is the poll interval while waiting
	Interval time.Duration
	Logger   *slog.Logger

	exe string
}

// NewCopyExitMonitor creates a monitor using the timings from cfg
func NewCopyExitMonitor(cfg Config, logger *slog.Logger) *CopyExitMonitor {
	return &CopyExitMonitor{
		ReportName: "DiskInfo.txt",
		Timeout:    cfg.SaveDialogTimeout,
		Interval:   cfg.CheckInterval,
		Logger:     logger,
	}
}

func (m *CopyExitMonitor) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Open checks that exe exists and the process can access raw drives
func (m *CopyExitMonitor) Open(ctx context.Context, exe string) error {
	abs, err := filepath.Abs(exe)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to find executable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("executable path %s is a directory", abs)
	}
	if !IsElevated() {
		return ErrNotElevated
	}
	m.exe = abs
	return nil
}

// ExportText runs the tool in /CopyExit mode and copies its report to path
func (m *CopyExitMonitor) ExportText(ctx context.Context, path string) error {
	if m.exe == "" {
		return errors.New("monitor is not open")
	}

	name := m.ReportName
	if name == "" {
		name = "DiskInfo.txt"
	}
	produced := filepath.Join(filepath.Dir(m.exe), name)
	if err := os.Remove(produced); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale report: %w", err)
	}

	m.logger().Info("exporting report", "exe", m.exe, "mode", "/CopyExit")
	cmd := exec.CommandContext(ctx, m.exe, "/CopyExit") // #nosec G204 -- executable path comes from configuration
	cmd.Dir = filepath.Dir(m.exe)
	if err := cmd.Run(); err != nil {
		if elevationRequired(err) {
			return ErrNotElevated
		}
		return fmt.Errorf("failed to run %s /CopyExit: %w", filepath.Base(m.exe), err)
	}

	waitCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	if err := WaitForFile(waitCtx, produced, m.Interval); err != nil {
		return err
	}

	if err := copyFile(produced, path); err != nil {
		return fmt.Errorf("failed to copy report: %w", err)
	}
	m.logger().Debug("report copied", "from", produced, "to", path)
	return nil
}

// CaptureScreenshot is not available without a GUI driver
func (m *CopyExitMonitor) CaptureScreenshot(ctx context.Context, req ScreenshotRequest) error {
	return ErrScreenshotUnsupported
}

// Close forgets the executable; /CopyExit already terminated the tool
func (m *CopyExitMonitor) Close() error {
	m.exe = ""
	return nil
}

func elevationRequired(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == errorElevationRequired {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == errorElevationRequired
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- report path is derived from the executable path
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
