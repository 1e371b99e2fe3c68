package cdi

import (
	"errors"
	"fmt"
)

var (
	// ErrDriveNotFound is returned when a drive selector matches no disk
	ErrDriveNotFound = errors.New("drive not found")
	// ErrInvalidRawValue is returned when a SMART raw value is not valid hex
	ErrInvalidRawValue = errors.New("invalid SMART raw value")
	// ErrNoDisks is returned by a strict parse when the report listed no disks
	ErrNoDisks = errors.New("no disks found in report")
	// ErrConfig is the base error for configuration problems
	ErrConfig = errors.New("invalid configuration")
	// ErrNotElevated is returned when the report tool needs administrator rights
	ErrNotElevated = errors.New("administrator privileges are required for raw drive access")
	// ErrScreenshotUnsupported is returned by monitors that cannot capture screenshots
	ErrScreenshotUnsupported = errors.New("screenshot capture not supported")
	// ErrStopped is returned when a workflow was stopped between steps
	ErrStopped = errors.New("workflow stopped")
	// ErrReportMissing is returned when the exported report never appeared
	ErrReportMissing = errors.New("exported report not found")
)

// DriveNotFoundError reports a selector that matched zero disks
type DriveNotFoundError struct {
	Selector string
	Source   string
}

func (e *DriveNotFoundError) Error() string {
	source := e.Source
	if source == "" {
		source = "<memory>"
	}
	return fmt.Sprintf("drive %q not found in %s", e.Selector, source)
}

// Is makes errors.Is(err, ErrDriveNotFound) work
func (e *DriveNotFoundError) Is(target error) bool {
	return target == ErrDriveNotFound
}

// ParseError reports a raw value that could not be read as an unsigned hex integer
type ParseError struct {
	Attribute string
	Value     string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("attribute %q: cannot parse raw value %q as hex: %v", e.Attribute, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidRawValue) work
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidRawValue
}

// ConfigError reports a configuration field that failed validation
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %q: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfig) work
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
