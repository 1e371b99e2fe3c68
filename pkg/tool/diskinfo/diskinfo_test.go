package diskinfo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/ssdqual/pkg/cdi"
	"github.com/mscrnt/ssdqual/pkg/tool"
)

var fixturePath = filepath.Join("..", "..", "cdi", "testdata", "DiskInfo.txt")

// cannedMonitor copies the fixture report to the export path
type cannedMonitor struct {
	exportErr error
}

func (m *cannedMonitor) Open(ctx context.Context, exe string) error { return nil }

func (m *cannedMonitor) ExportText(ctx context.Context, path string) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (m *cannedMonitor) CaptureScreenshot(ctx context.Context, req cdi.ScreenshotRequest) error {
	return cdi.ErrScreenshotUnsupported
}

func (m *cannedMonitor) Close() error { return nil }

func newTestTool(m cdi.Monitor) *Tool {
	return &Tool{
		NewMonitor: func(cdi.Config, *slog.Logger) cdi.Monitor { return m },
		Killer:     func(context.Context, string) (int, error) { return 0, nil },
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestRegistered(t *testing.T) {
	got, err := tool.Get(Name)
	require.NoError(t, err)
	assert.Equal(t, Name, got.Name())
}

func TestRun(t *testing.T) {
	logDir := t.TempDir()
	tl := newTestTool(&cannedMonitor{})

	params := tl.DefaultParams()
	params.Prefix = "Before_"
	params.Config["log_path"] = logDir

	result, err := tl.Run(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(logDir, "Before_DiskInfo.json"), result.SnapshotPath)
	assert.FileExists(t, result.SnapshotPath)
	assert.Equal(t, "9.0.0", result.Details["tool_version"])
	assert.Equal(t, 2, result.Details["disks"])

	require.Len(t, result.Values, 12)
	assert.Equal(t, tool.Value{Drive: "C:", Attribute: "Critical Warning", Raw: 0}, result.Values[0])
	assert.Contains(t, result.Values, tool.Value{Drive: "C:", Attribute: "Power Cycles", Raw: 321})
	assert.Contains(t, result.Values, tool.Value{Drive: "D: E:", Attribute: "Power On Hours", Raw: 1234})
}

func TestRunSelectedDrive(t *testing.T) {
	tl := newTestTool(&cannedMonitor{})
	params := tl.DefaultParams()
	params.Drive = "D:"
	params.Config["log_path"] = t.TempDir()

	result, err := tl.Run(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Values, 5)
	for _, v := range result.Values {
		assert.Equal(t, "D: E:", v.Drive)
	}

	params.Drive = "Z:"
	result, err = tl.Run(context.Background(), params)
	assert.ErrorIs(t, err, cdi.ErrDriveNotFound)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestRunExportFailure(t *testing.T) {
	tl := newTestTool(&cannedMonitor{exportErr: errors.New("tool crashed")})
	params := tl.DefaultParams()
	params.Config["log_path"] = t.TempDir()

	result, err := tl.Run(context.Background(), params)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool crashed")
	assert.False(t, result.EndTime.IsZero())
}

func TestConfigFromParams(t *testing.T) {
	cfg, err := Config(tool.Params{
		Prefix:  "After_",
		Timeout: 2 * time.Minute,
		Config:  map[string]interface{}{"ExePath": "D:/cdi/DiskInfo64.exe"},
	})
	require.NoError(t, err)
	assert.Equal(t, "After_", cfg.LogPrefix)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, "D:/cdi/DiskInfo64.exe", cfg.ExecutablePath)

	tl := New(nil)
	assert.ErrorIs(t, tl.ValidateParams(tool.Params{Config: map[string]interface{}{"nope": 1}}), cdi.ErrConfig)
	assert.NoError(t, tl.ValidateParams(tl.DefaultParams()))
}

func TestValuesSkipsInvalidHex(t *testing.T) {
	rec := &cdi.Record{Disks: []cdi.DiskEntry{{
		Ordinal: "1",
		Smart: []cdi.SmartAttribute{
			{ID: "01", Name: "Good", RawValue: "000000000010"},
			{ID: "02", Name: "Bad", RawValue: "zz"},
			{ID: "03", Name: "Good", RawValue: "000000000020"},
		},
	}}}

	values, skipped, err := Values(rec, "")
	require.NoError(t, err)
	assert.Equal(t, []tool.Value{{Drive: "disk1", Attribute: "Good", Raw: 16}}, values)
	assert.Equal(t, []string{"disk1/Bad=zz"}, skipped)
}

func TestInfo(t *testing.T) {
	info := New(nil).Info()
	assert.Equal(t, "storage", info.Category)
	assert.NotEmpty(t, info.Parameters)
}
