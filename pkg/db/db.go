// Package db keeps the qualification history in SQLite: captured runs,
// the SMART raw values of each run, comparison verdicts and schedules.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DB wraps the SQL database connection
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates or updates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool TEXT NOT NULL,
		prefix TEXT NOT NULL DEFAULT '',
		snapshot_path TEXT,
		params TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		success BOOLEAN DEFAULT 0,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS smart_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		drive TEXT NOT NULL,
		attribute TEXT NOT NULL,
		raw INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		drive TEXT NOT NULL,
		attributes TEXT NOT NULL,
		expected INTEGER NOT NULL DEFAULT 0,
		before_path TEXT,
		after_path TEXT,
		passed BOOLEAN NOT NULL,
		message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		cron_expr TEXT NOT NULL,
		tool TEXT NOT NULL,
		prefix TEXT NOT NULL DEFAULT '',
		params TEXT,
		enabled BOOLEAN DEFAULT 1,
		last_run_id INTEGER,
		last_run_time DATETIME,
		next_run_time DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (last_run_id) REFERENCES runs(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_tool ON runs(tool);
	CREATE INDEX IF NOT EXISTS idx_runs_prefix ON runs(prefix);
	CREATE INDEX IF NOT EXISTS idx_runs_start_time ON runs(start_time);
	CREATE INDEX IF NOT EXISTS idx_smart_values_run_id ON smart_values(run_id);
	CREATE INDEX IF NOT EXISTS idx_smart_values_attribute ON smart_values(drive, attribute);
	CREATE INDEX IF NOT EXISTS idx_checks_kind ON checks(kind);
	CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);
	CREATE INDEX IF NOT EXISTS idx_schedules_next_run ON schedules(next_run_time);

	CREATE TRIGGER IF NOT EXISTS update_runs_timestamp
	AFTER UPDATE ON runs
	BEGIN
		UPDATE runs SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;

	CREATE TRIGGER IF NOT EXISTS update_schedules_timestamp
	AFTER UPDATE ON schedules
	BEGIN
		UPDATE schedules SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}

const runColumns = `id, tool, prefix, snapshot_path, params, start_time, end_time,
	success, error, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var snapshot, errText sql.NullString
	err := row.Scan(
		&run.ID, &run.Tool, &run.Prefix, &snapshot, &run.Params, &run.StartTime,
		&run.EndTime, &run.Success, &errText, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.SnapshotPath = snapshot.String
	run.Error = errText.String
	return run, nil
}

// CreateRun creates a new run record
func (db *DB) CreateRun(tool, prefix string, params JSONData) (*Run, error) {
	now := time.Now()
	run := &Run{
		Tool:      tool,
		Prefix:    prefix,
		Params:    params,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := db.conn.Exec(
		`INSERT INTO runs (tool, prefix, params, start_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Tool, run.Prefix, run.Params, run.StartTime, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return run, nil
}

// UpdateRun stores the outcome of a run
func (db *DB) UpdateRun(run *Run) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET
		 snapshot_path = ?, end_time = ?, success = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		run.SnapshotPath, run.EndTime, run.Success, run.Error, time.Now(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id int64) (*Run, error) {
	run, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent successful run with the given prefix
func (db *DB) LatestRun(tool, prefix string) (*Run, error) {
	success := true
	runs, err := db.ListRuns(RunFilter{Tool: tool, Prefix: prefix, Success: &success, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run with prefix %q: %w", prefix, ErrNotFound)
	}
	return runs[0], nil
}

// ListRuns retrieves runs based on filters, newest first
func (db *DB) ListRuns(filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []interface{}{}

	if filter.Tool != "" {
		query += " AND tool = ?"
		args = append(args, filter.Tool)
	}

	if filter.Prefix != "" {
		query += " AND prefix = ?"
		args = append(args, filter.Prefix)
	}

	if filter.StartTime != nil {
		query += " AND start_time >= ?"
		args = append(args, *filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND start_time <= ?"
		args = append(args, *filter.EndTime)
	}

	if filter.Success != nil {
		query += " AND success = ?"
		args = append(args, *filter.Success)
	}

	query += " ORDER BY start_time DESC, id DESC"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its values
func (db *DB) DeleteRun(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// CreateValues stores the SMART raw values of a run in one transaction
func (db *DB) CreateValues(runID int64, values []Value) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Only rollback if we haven't committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO smart_values (run_id, drive, attribute, raw) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range values {
		if _, err := stmt.Exec(runID, v.Drive, v.Attribute, v.Raw); err != nil {
			return fmt.Errorf("failed to insert value %s/%s: %w", v.Drive, v.Attribute, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetValues retrieves the values of a run in capture order
func (db *DB) GetValues(runID int64) ([]*Value, error) {
	return db.ListValues(ValueFilter{RunID: &runID})
}

// ListValues retrieves values based on filters, ordered by run then capture order
func (db *DB) ListValues(filter ValueFilter) ([]*Value, error) {
	query := `SELECT id, run_id, drive, attribute, raw, created_at
	          FROM smart_values WHERE 1=1`
	args := []interface{}{}

	if filter.RunID != nil {
		query += " AND run_id = ?"
		args = append(args, *filter.RunID)
	}

	if filter.Drive != "" {
		query += " AND drive = ?"
		args = append(args, filter.Drive)
	}

	if filter.Attribute != "" {
		query += " AND attribute = ?"
		args = append(args, filter.Attribute)
	}

	query += " ORDER BY run_id, id"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var values []*Value
	for rows.Next() {
		v := &Value{}
		if err := rows.Scan(&v.ID, &v.RunID, &v.Drive, &v.Attribute, &v.Raw, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CreateCheck records a comparison verdict
func (db *DB) CreateCheck(check *Check) error {
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now()
	}
	result, err := db.conn.Exec(
		`INSERT INTO checks (kind, drive, attributes, expected, before_path, after_path, passed, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(check.Kind), check.Drive, check.Attributes, check.Expected,
		check.BeforePath, check.AfterPath, check.Passed, check.Message, check.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create check: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	check.ID = id
	return nil
}

// ListChecks retrieves verdicts based on filters, newest first
func (db *DB) ListChecks(filter CheckFilter) ([]*Check, error) {
	query := `SELECT id, kind, drive, attributes, expected, before_path, after_path,
	          passed, message, created_at FROM checks WHERE 1=1`
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}

	if filter.Drive != "" {
		query += " AND drive = ?"
		args = append(args, filter.Drive)
	}

	if filter.Passed != nil {
		query += " AND passed = ?"
		args = append(args, *filter.Passed)
	}

	query += " ORDER BY created_at DESC, id DESC"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checks []*Check
	for rows.Next() {
		c := &Check{}
		var kind string
		var before, after, message sql.NullString
		err := rows.Scan(&c.ID, &kind, &c.Drive, &c.Attributes, &c.Expected,
			&before, &after, &c.Passed, &message, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		c.Kind = CheckKind(kind)
		c.BeforePath, c.AfterPath, c.Message = before.String, after.String, message.String
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)

		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}
