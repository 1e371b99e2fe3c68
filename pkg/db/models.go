package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Run represents one tool execution that captured a snapshot
type Run struct {
	ID           int64      `json:"id"`
	Tool         string     `json:"tool"`
	Prefix       string     `json:"prefix"`
	SnapshotPath string     `json:"snapshot_path,omitempty"`
	Params       JSONData   `json:"params"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Success      bool       `json:"success"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Value is one SMART raw value recorded for a run
type Value struct {
	ID        int64     `json:"id"`
	RunID     int64     `json:"run_id"`
	Drive     string    `json:"drive"`
	Attribute string    `json:"attribute"`
	Raw       int64     `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// Hex returns the raw value in the 12-digit form CrystalDiskInfo prints
func (v *Value) Hex() string {
	return fmt.Sprintf("%012X", v.Raw)
}

// CheckKind names a comparison predicate
type CheckKind string

const (
	CheckEquals     CheckKind = "equals"
	CheckNoIncrease CheckKind = "no-increase"
	CheckDelta      CheckKind = "delta"
)

// Check is one recorded pass/fail verdict
type Check struct {
	ID         int64      `json:"id"`
	Kind       CheckKind  `json:"kind"`
	Drive      string     `json:"drive"`
	Attributes StringList `json:"attributes"`
	// Expected is the expected value for equals and the expected delta for delta
	Expected   int64     `json:"expected"`
	BeforePath string    `json:"before_path,omitempty"`
	AfterPath  string    `json:"after_path,omitempty"`
	Passed     bool      `json:"passed"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// JSONData is a custom type for storing JSON in SQLite
type JSONData map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONData) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONData) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, j)
}

// StringList stores a list of strings as a JSON array
type StringList []string

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, (*[]string)(l))
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan type %T into JSON column", value)
	}
}

// RunStatus represents the status of a run
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// GetStatus returns the status of a run
func (r *Run) GetStatus() RunStatus {
	if r.EndTime == nil {
		if r.StartTime.IsZero() {
			return RunStatusPending
		}
		return RunStatusRunning
	}
	if r.Success {
		return RunStatusComplete
	}
	return RunStatusFailed
}

// Duration returns the duration of the run
func (r *Run) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// RunFilter represents filters for querying runs
type RunFilter struct {
	Tool      string
	Prefix    string
	StartTime *time.Time
	EndTime   *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// ValueFilter represents filters for querying values
type ValueFilter struct {
	RunID     *int64
	Drive     string
	Attribute string
	Limit     int
	Offset    int
}

// CheckFilter represents filters for querying verdicts
type CheckFilter struct {
	Kind   CheckKind
	Drive  string
	Passed *bool
	Limit  int
	Offset int
}

// ExportFormat represents the format for exporting data
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)
