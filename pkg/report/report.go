// Package report renders stored captures and verdicts as standalone HTML.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/mscrnt/ssdqual/pkg/db"
)

// ReportData contains all data needed for a single run report
type ReportData struct {
	Run         *db.Run
	Drives      []DriveGroup
	Checks      []*db.Check
	GeneratedAt time.Time
	SystemInfo  SystemInfo
}

// DriveGroup holds the values captured for one drive
type DriveGroup struct {
	Name   string
	Values []ValueDisplay
}

// ValueDisplay represents one SMART raw value for display
type ValueDisplay struct {
	Attribute string
	Raw       int64
	Hex       string
}

// ComparisonData contains the data for a before/after report
type ComparisonData struct {
	Before      *db.Run
	After       *db.Run
	Drives      []ComparisonGroup
	GeneratedAt time.Time
	SystemInfo  SystemInfo
}

// ComparisonGroup holds the before/after rows of one drive
type ComparisonGroup struct {
	Name string
	Rows []ComparisonRow
}

// ComparisonRow is one attribute in both snapshots. A side missing the
// attribute reads as 0, matching the comparison predicates.
type ComparisonRow struct {
	Attribute string
	Before    int64
	After     int64
	Delta     int64
	Missing   string
}

// Generator creates reports from stored runs
type Generator struct {
	database *db.DB
	// SystemInfo collects host details; nil skips the section
	SystemInfo func(ctx context.Context) SystemInfo
}

// NewGenerator creates a new report generator
func NewGenerator(database *db.DB) *Generator {
	return &Generator{
		database:   database,
		SystemInfo: CollectSystemInfo,
	}
}

// GenerateHTML generates an HTML report for a run
func (g *Generator) GenerateHTML(ctx context.Context, runID int64) (string, error) {
	data, err := g.loadReportData(ctx, runID)
	if err != nil {
		return "", err
	}
	return render(runTemplate, data)
}

// GenerateComparisonHTML renders the values of two runs side by side
func (g *Generator) GenerateComparisonHTML(ctx context.Context, beforeID, afterID int64) (string, error) {
	data, err := g.loadComparisonData(ctx, beforeID, afterID)
	if err != nil {
		return "", err
	}
	return render(comparisonTemplate, data)
}

func (g *Generator) loadReportData(ctx context.Context, runID int64) (*ReportData, error) {
	run, err := g.database.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	values, err := g.database.GetValues(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}

	checks, err := g.relatedChecks(run)
	if err != nil {
		return nil, err
	}

	data := &ReportData{
		Run:         run,
		Drives:      groupValues(values),
		Checks:      checks,
		GeneratedAt: time.Now(),
	}
	if g.SystemInfo != nil {
		data.SystemInfo = g.SystemInfo(ctx)
	}
	return data, nil
}

// relatedChecks returns the verdicts that read the run's snapshot
func (g *Generator) relatedChecks(run *db.Run) ([]*db.Check, error) {
	if run.SnapshotPath == "" {
		return nil, nil
	}
	all, err := g.database.ListChecks(db.CheckFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get checks: %w", err)
	}
	var related []*db.Check
	for _, c := range all {
		if c.BeforePath == run.SnapshotPath || c.AfterPath == run.SnapshotPath {
			related = append(related, c)
		}
	}
	return related, nil
}

func (g *Generator) loadComparisonData(ctx context.Context, beforeID, afterID int64) (*ComparisonData, error) {
	before, err := g.database.GetRun(beforeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	after, err := g.database.GetRun(afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	beforeValues, err := g.database.GetValues(beforeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}
	afterValues, err := g.database.GetValues(afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}

	data := &ComparisonData{
		Before:      before,
		After:       after,
		Drives:      compareValues(beforeValues, afterValues),
		GeneratedAt: time.Now(),
	}
	if g.SystemInfo != nil {
		data.SystemInfo = g.SystemInfo(ctx)
	}
	return data, nil
}

// groupValues groups values by drive, keeping capture order within a drive
func groupValues(values []*db.Value) []DriveGroup {
	var groups []DriveGroup
	index := make(map[string]int)
	for _, v := range values {
		i, ok := index[v.Drive]
		if !ok {
			i = len(groups)
			index[v.Drive] = i
			groups = append(groups, DriveGroup{Name: v.Drive})
		}
		groups[i].Values = append(groups[i].Values, ValueDisplay{
			Attribute: v.Attribute,
			Raw:       v.Raw,
			Hex:       v.Hex(),
		})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

type valueKey struct {
	drive     string
	attribute string
}

func compareValues(before, after []*db.Value) []ComparisonGroup {
	rows := make(map[valueKey]*ComparisonRow)
	var order []valueKey

	add := func(v *db.Value) *ComparisonRow {
		k := valueKey{v.Drive, v.Attribute}
		row, ok := rows[k]
		if !ok {
			row = &ComparisonRow{Attribute: v.Attribute}
			rows[k] = row
			order = append(order, k)
		}
		return row
	}

	seenBefore := make(map[valueKey]bool)
	for _, v := range before {
		add(v).Before = v.Raw
		seenBefore[valueKey{v.Drive, v.Attribute}] = true
	}
	seenAfter := make(map[valueKey]bool)
	for _, v := range after {
		add(v).After = v.Raw
		seenAfter[valueKey{v.Drive, v.Attribute}] = true
	}

	var groups []ComparisonGroup
	index := make(map[string]int)
	for _, k := range order {
		row := rows[k]
		row.Delta = row.After - row.Before
		switch {
		case !seenBefore[k]:
			row.Missing = "before"
		case !seenAfter[k]:
			row.Missing = "after"
		}

		i, ok := index[k.drive]
		if !ok {
			i = len(groups)
			index[k.drive] = i
			groups = append(groups, ComparisonGroup{Name: k.drive})
		}
		groups[i].Rows = append(groups[i].Rows, *row)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

var funcMap = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
	"formatDuration": func(d time.Duration) string {
		return fmt.Sprintf("%.2f seconds", d.Seconds())
	},
	"statusClass": func(success bool) string {
		if success {
			return "success"
		}
		return "failure"
	},
	"statusText": func(success bool) string {
		if success {
			return "PASSED"
		}
		return "FAILED"
	},
	"deltaClass": func(delta int64) string {
		if delta != 0 {
			return "changed"
		}
		return ""
	},
}

var (
	runTemplate        = template.Must(template.New("run").Funcs(funcMap).Parse(baseTemplate + runBody))
	comparisonTemplate = template.Must(template.New("comparison").Funcs(funcMap).Parse(baseTemplate + comparisonBody))
)

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
