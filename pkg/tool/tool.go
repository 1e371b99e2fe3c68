// Package tool defines the interface every vendor tool driven by the
// qualification bench implements, and a registry to look them up by name.
package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Params represents parameters passed to a tool run
type Params struct {
	// Prefix names the snapshot taken by the run, e.g. "Before_"
	Prefix string `json:"prefix"`
	// Drive restricts reported values to the disk matching this drive selector
	Drive   string                 `json:"drive,omitempty"`
	Timeout time.Duration          `json:"timeout"`
	Config  map[string]interface{} `json:"config"`
}

// Value is one SMART raw value captured by a run
type Value struct {
	Drive     string `json:"drive"`
	Attribute string `json:"attribute"`
	Raw       int64  `json:"raw"`
}

// Result represents the output of a tool run
type Result struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// SnapshotPath is the persisted record the values were read from
	SnapshotPath string                 `json:"snapshot_path,omitempty"`
	Values       []Value                `json:"values"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// Run executes the tool with the given parameters
	Run(ctx context.Context, params Params) (Result, error)

	// ValidateParams checks if the parameters are valid for this tool
	ValidateParams(params Params) error

	// DefaultParams returns the default parameters for this tool
	DefaultParams() Params
}

// Info provides metadata about a tool
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Parameters  []ParamInfo `json:"parameters"`
}

// ParamInfo describes a config key that a tool accepts
type ParamInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
}

// Finish stamps the end time and duration on r
func (r *Result) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// MarshalParams converts Params to JSON
func MarshalParams(p Params) ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalParams converts JSON to Params
func UnmarshalParams(data []byte) (Params, error) {
	var p Params
	err := json.Unmarshal(data, &p)
	return p, err
}
