package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const timeLayout = "2006-01-02 15:04:05"

var valueHeaders = []string{
	"Run ID", "Tool", "Prefix", "Start Time", "End Time", "Duration (s)",
	"Success", "Drive", "Attribute", "Raw Value", "Raw Hex",
}

var checkHeaders = []string{
	"Check ID", "Time", "Kind", "Drive", "Attributes", "Expected",
	"Before", "After", "Passed", "Message",
}

// ExportCSV exports the SMART values of one run to CSV format
func (db *DB) ExportCSV(w io.Writer, runID int64) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(valueHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if err := db.writeRunRows(csvWriter, run); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportAllCSV exports all runs and their values to CSV format
func (db *DB) ExportAllCSV(w io.Writer) error {
	runs, err := db.ListRuns(RunFilter{})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(valueHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, run := range runs {
		if err := db.writeRunRows(csvWriter, run); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func (db *DB) writeRunRows(csvWriter *csv.Writer, run *Run) error {
	values, err := db.GetValues(run.ID)
	if err != nil {
		return fmt.Errorf("failed to get values for run %d: %w", run.ID, err)
	}

	endTime := ""
	if run.EndTime != nil {
		endTime = run.EndTime.Format(timeLayout)
	}

	for _, v := range values {
		row := []string{
			strconv.FormatInt(run.ID, 10),
			run.Tool,
			run.Prefix,
			run.StartTime.Format(timeLayout),
			endTime,
			fmt.Sprintf("%.3f", run.Duration().Seconds()),
			strconv.FormatBool(run.Success),
			v.Drive,
			v.Attribute,
			strconv.FormatInt(v.Raw, 10),
			v.Hex(),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// ExportJSON exports one run and its values to JSON format
func (db *DB) ExportJSON(w io.Writer, runID int64) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	values, err := db.GetValues(runID)
	if err != nil {
		return fmt.Errorf("failed to get values: %w", err)
	}
	if values == nil {
		values = []*Value{}
	}

	export := struct {
		Run    *Run     `json:"run"`
		Values []*Value `json:"values"`
	}{
		Run:    run,
		Values: values,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportChecksCSV exports recorded verdicts to CSV format
func (db *DB) ExportChecksCSV(w io.Writer, filter CheckFilter) error {
	checks, err := db.ListChecks(filter)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(checkHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, c := range checks {
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.CreatedAt.Format(timeLayout),
			string(c.Kind),
			c.Drive,
			strings.Join(c.Attributes, ";"),
			strconv.FormatInt(c.Expected, 10),
			c.BeforePath,
			c.AfterPath,
			strconv.FormatBool(c.Passed),
			c.Message,
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportChecksJSON exports recorded verdicts to JSON format
func (db *DB) ExportChecksJSON(w io.Writer, filter CheckFilter) error {
	checks, err := db.ListChecks(filter)
	if err != nil {
		return err
	}
	if checks == nil {
		checks = []*Check{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(struct {
		Checks []*Check `json:"checks"`
	}{checks}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
