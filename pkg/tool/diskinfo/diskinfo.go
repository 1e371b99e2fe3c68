// Package diskinfo drives CrystalDiskInfo as a bench tool: each run captures
// a prefixed snapshot and reports the SMART raw values it contains.
package diskinfo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mscrnt/ssdqual/pkg/cdi"
	"github.com/mscrnt/ssdqual/pkg/tool"
)

// Name is the registry name of the tool
const Name = "diskinfo"

func init() {
	// Register the CrystalDiskInfo tool
	_ = tool.Register(New(nil))
}

// MonitorFactory builds the report producer for one run
type MonitorFactory func(cfg cdi.Config, logger *slog.Logger) cdi.Monitor

// Tool captures CrystalDiskInfo snapshots
type Tool struct {
	NewMonitor MonitorFactory
	// Killer overrides cdi.KillProcesses when set
	Killer cdi.ProcessKiller
	Logger *slog.Logger
}

// New creates the tool using the /CopyExit producer
func New(logger *slog.Logger) *Tool {
	return &Tool{
		NewMonitor: func(cfg cdi.Config, logger *slog.Logger) cdi.Monitor {
			return cdi.NewCopyExitMonitor(cfg, logger)
		},
		Logger: logger,
	}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return Name
}

// Description returns the tool description
func (t *Tool) Description() string {
	return "CrystalDiskInfo SMART snapshot"
}

// Info describes the accepted config keys
func (t *Tool) Info() tool.Info {
	defaults := cdi.DefaultConfig()
	return tool.Info{
		Name:        Name,
		Description: t.Description(),
		Category:    "storage",
		Parameters: []tool.ParamInfo{
			{Name: "executable_path", Type: "string", Default: defaults.ExecutablePath, Description: "Path to DiskInfo64.exe"},
			{Name: "log_path", Type: "string", Default: defaults.LogPath, Description: "Directory for reports and snapshots"},
			{Name: "diskinfo_txt_name", Type: "string", Default: defaults.TextName, Description: "Exported report file name"},
			{Name: "diskinfo_json_name", Type: "string", Default: defaults.JSONName, Description: "Snapshot file name"},
			{Name: "diskinfo_png_name", Type: "string", Default: defaults.PNGName, Description: "Screenshot file name; empty disables screenshots"},
			{Name: "screenshot_drive_letter", Type: "string", Description: "Drive selected before the screenshot"},
			{Name: "timeout_seconds", Type: "duration", Default: defaults.Timeout.Seconds(), Description: "Overall capture timeout"},
			{Name: "strict", Type: "bool", Default: defaults.Strict, Description: "Fail when the report lists no disks"},
		},
	}
}

// DefaultParams returns default parameters
func (t *Tool) DefaultParams() tool.Params {
	return tool.Params{
		Timeout: cdi.DefaultConfig().Timeout,
		Config:  make(map[string]interface{}),
	}
}

// ValidateParams validates the parameters
func (t *Tool) ValidateParams(params tool.Params) error {
	_, err := Config(params)
	return err
}

// Config resolves the capture configuration for params
func Config(params tool.Params) (cdi.Config, error) {
	cfg, err := cdi.DefaultConfig().Apply(params.Config)
	if err != nil {
		return cfg, err
	}
	if params.Prefix != "" {
		cfg.LogPrefix = params.Prefix
	}
	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Run captures one snapshot and reports its SMART raw values
func (t *Tool) Run(ctx context.Context, params tool.Params) (tool.Result, error) {
	result := tool.Result{
		StartTime: time.Now(),
		Details:   make(map[string]interface{}),
	}

	fail := func(err error) (tool.Result, error) {
		result.Finish()
		result.Success = false
		result.Error = err.Error()
		return result, err
	}

	cfg, err := Config(params)
	if err != nil {
		return fail(err)
	}

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tool", Name, "prefix", cfg.LogPrefix)

	opts := []cdi.ControllerOption{cdi.WithLogger(logger)}
	if t.Killer != nil {
		opts = append(opts, cdi.WithProcessKiller(t.Killer))
	}
	ctrl, err := cdi.NewController(cfg, t.NewMonitor(cfg, logger), opts...)
	if err != nil {
		return fail(err)
	}

	rec, err := ctrl.Run(ctx)
	if err != nil {
		return fail(err)
	}
	result.SnapshotPath = cfg.JSONPath()
	result.Details["tool_version"] = rec.ToolVersion
	result.Details["os_version"] = rec.OSVersion
	result.Details["disks"] = len(rec.Disks)

	values, skipped, err := Values(rec, params.Drive)
	if err != nil {
		return fail(err)
	}
	if len(skipped) > 0 {
		result.Details["skipped"] = skipped
		logger.Warn("skipped unparsable SMART values", "count", len(skipped))
	}
	result.Values = values
	result.Success = true
	result.Finish()
	return result, nil
}

// Values flattens the SMART raw values of rec. With a non-empty selector
// only the matching disk is reported. Rows whose raw value is not valid
// hex are returned in skipped instead of failing the run.
func Values(rec *cdi.Record, selector string) ([]tool.Value, []string, error) {
	disks := make([]*cdi.DiskEntry, 0, len(rec.Disks))
	if selector != "" {
		disk, err := rec.FindDisk(selector)
		if err != nil {
			return nil, nil, err
		}
		disks = append(disks, disk)
	} else {
		for i := range rec.Disks {
			disks = append(disks, &rec.Disks[i])
		}
	}

	var (
		values  []tool.Value
		skipped []string
	)
	for _, disk := range disks {
		drive := DriveLabel(disk)
		seen := make(map[string]bool, len(disk.Smart))
		for _, attr := range disk.Smart {
			if seen[attr.Name] {
				continue
			}
			seen[attr.Name] = true
			raw, err := cdi.RawValue(attr.RawValue)
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("%s/%s=%s", drive, attr.Name, attr.RawValue))
				continue
			}
			values = append(values, tool.Value{Drive: drive, Attribute: attr.Name, Raw: raw})
		}
	}
	return values, skipped, nil
}

// DriveLabel names a disk by drive letter, falling back to its disk number
func DriveLabel(disk *cdi.DiskEntry) string {
	if letter := disk.DriveLetter(); letter != "" {
		return letter
	}
	return "disk" + disk.Ordinal
}
