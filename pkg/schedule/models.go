package schedule

import (
	"strings"
	"time"

	"github.com/mscrnt/ssdqual/pkg/db"
)

// TimePlaceholder in a schedule prefix is replaced by the capture time
const TimePlaceholder = "{{time}}"

// PrefixTimeLayout formats TimePlaceholder
const PrefixTimeLayout = "20060102_150405"

// Schedule represents a periodic snapshot capture
type Schedule struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CronExpr    string `json:"cron_expr"`
	Tool        string `json:"tool"`
	// Prefix names each snapshot; may contain {{time}}
	Prefix      string      `json:"prefix"`
	Params      db.JSONData `json:"params"`
	Enabled     bool        `json:"enabled"`
	LastRunID   *int64      `json:"last_run_id"`
	LastRunTime *time.Time  `json:"last_run_time"`
	NextRunTime *time.Time  `json:"next_run_time"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Filter represents filters for querying schedules
type Filter struct {
	Tool    string
	Enabled *bool
	Limit   int
	Offset  int
}

// ExpandPrefix substitutes the capture time into prefix
func ExpandPrefix(prefix string, t time.Time) string {
	return strings.ReplaceAll(prefix, TimePlaceholder, t.Format(PrefixTimeLayout))
}

// IsOverdue returns true if the schedule is overdue for execution
func (s *Schedule) IsOverdue() bool {
	if !s.Enabled || s.NextRunTime == nil {
		return false
	}
	return time.Now().After(*s.NextRunTime)
}

// ShouldRun returns true if the schedule should run now
func (s *Schedule) ShouldRun() bool {
	if !s.Enabled {
		return false
	}
	if s.LastRunTime == nil {
		return true
	}
	return s.NextRunTime != nil && time.Now().After(*s.NextRunTime)
}
