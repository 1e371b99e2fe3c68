package cdi

import "context"

// Monitor drives the disk-health tool and produces its plaintext report.
// How the report is produced (GUI automation, command-line export) is up
// to the implementation.
type Monitor interface {
	// Open launches the tool from exe
	Open(ctx context.Context, exe string) error
	// ExportText guarantees a plaintext report exists at path on success
	ExportText(ctx context.Context, path string) error
	// CaptureScreenshot saves an image of the tool window.
	// Implementations that cannot do this return ErrScreenshotUnsupported.
	CaptureScreenshot(ctx context.Context, req ScreenshotRequest) error
	// Close shuts the tool down; safe to call after a failed Open
	Close() error
}

// ScreenshotRequest describes which disk to select before capturing
type ScreenshotRequest struct {
	Path        string
	DriveLetter string
	Model       string
	DiskNum     string
	WindowTitle string
	WindowClass string
}
