package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/ssdqual/pkg/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "qual.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func storedRun(t *testing.T, database *db.DB, prefix string, values ...db.Value) *db.Run {
	t.Helper()
	run, err := database.CreateRun("diskinfo", prefix, db.JSONData{"log_path": "./testlog"})
	require.NoError(t, err)
	end := run.StartTime.Add(2 * time.Second)
	run.EndTime = &end
	run.Success = true
	run.SnapshotPath = "testlog/" + prefix + "DiskInfo.json"
	require.NoError(t, database.UpdateRun(run))
	require.NoError(t, database.CreateValues(run.ID, values))
	return run
}

func testGenerator(database *db.DB) *Generator {
	g := NewGenerator(database)
	g.SystemInfo = func(context.Context) SystemInfo {
		return SystemInfo{Hostname: "bench-01", Platform: "windows 11", Architecture: "amd64", CPUCores: 8}
	}
	return g
}

func TestGenerateHTML(t *testing.T) {
	database := openTestDB(t)
	run := storedRun(t, database, "Before_",
		db.Value{Drive: "D:", Attribute: "Temperature", Raw: 38},
		db.Value{Drive: "C:", Attribute: "Power Cycles", Raw: 321},
		db.Value{Drive: "C:", Attribute: "Power On Hours", Raw: 1234},
	)
	require.NoError(t, database.CreateCheck(&db.Check{
		Kind:       db.CheckEquals,
		Drive:      "C:",
		Attributes: db.StringList{"Power Cycles"},
		Expected:   321,
		AfterPath:  run.SnapshotPath,
		Passed:     true,
		Message:    "Check SMART Passed Power Cycles: 321 == 321",
	}))
	require.NoError(t, database.CreateCheck(&db.Check{
		Kind:       db.CheckEquals,
		Drive:      "C:",
		Attributes: db.StringList{"Power Cycles"},
		AfterPath:  "testlog/Other_DiskInfo.json",
		Message:    "unrelated verdict",
	}))

	html, err := testGenerator(database).GenerateHTML(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Contains(t, html, "SMART Snapshot Report - Run #1")
	assert.Contains(t, html, "Before_")
	assert.Contains(t, html, "000000000141")
	assert.Contains(t, html, "Power On Hours")
	assert.Contains(t, html, "Check SMART Passed Power Cycles: 321 == 321")
	assert.NotContains(t, html, "unrelated verdict")
	assert.Contains(t, html, "bench-01")
	assert.Contains(t, html, "2.00 seconds")

	// Drives are listed in name order
	assert.Less(t, indexOf(html, "<h3>C:</h3>"), indexOf(html, "<h3>D:</h3>"))
}

func TestGenerateHTMLEscapes(t *testing.T) {
	database := openTestDB(t)
	run, err := database.CreateRun("diskinfo", "<script>", nil)
	require.NoError(t, err)

	html, err := testGenerator(database).GenerateHTML(context.Background(), run.ID)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Still Running")
	assert.Contains(t, html, "No values were recorded")
}

func TestGenerateHTMLMissingRun(t *testing.T) {
	_, err := testGenerator(openTestDB(t)).GenerateHTML(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGenerateComparisonHTML(t *testing.T) {
	database := openTestDB(t)
	before := storedRun(t, database, "Before_",
		db.Value{Drive: "C:", Attribute: "Power Cycles", Raw: 100},
		db.Value{Drive: "C:", Attribute: "Unsafe Shutdowns", Raw: 4},
	)
	after := storedRun(t, database, "After_",
		db.Value{Drive: "C:", Attribute: "Power Cycles", Raw: 101},
		db.Value{Drive: "C:", Attribute: "Unsafe Shutdowns", Raw: 4},
		db.Value{Drive: "C:", Attribute: "Media Errors", Raw: 2},
	)

	html, err := testGenerator(database).GenerateComparisonHTML(context.Background(), before.ID, after.ID)
	require.NoError(t, err)
	assert.Contains(t, html, "Run #1 vs #2")
	assert.Contains(t, html, "Media Errors (missing before)")
	assert.Contains(t, html, `class="changed"`)
}

func TestCompareValues(t *testing.T) {
	before := []*db.Value{
		{Drive: "D:", Attribute: "Temperature", Raw: 40},
		{Drive: "C:", Attribute: "Power Cycles", Raw: 10},
		{Drive: "C:", Attribute: "Gone", Raw: 5},
	}
	after := []*db.Value{
		{Drive: "C:", Attribute: "Power Cycles", Raw: 12},
		{Drive: "D:", Attribute: "Temperature", Raw: 38},
	}

	groups := compareValues(before, after)
	require.Len(t, groups, 2)
	assert.Equal(t, "C:", groups[0].Name)
	require.Len(t, groups[0].Rows, 2)
	assert.Equal(t, ComparisonRow{Attribute: "Power Cycles", Before: 10, After: 12, Delta: 2}, groups[0].Rows[0])
	assert.Equal(t, ComparisonRow{Attribute: "Gone", Before: 5, After: 0, Delta: -5, Missing: "after"}, groups[0].Rows[1])
	assert.Equal(t, int64(-2), groups[1].Rows[0].Delta)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 GiB", formatBytes(3*512*1024*1024))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
