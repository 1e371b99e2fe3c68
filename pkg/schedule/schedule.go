// Package schedule captures snapshots on cron schedules, e.g. every hour of
// a burn-in, and records each capture in the history database.
package schedule

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mscrnt/ssdqual/pkg/db"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron validates a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return s, nil
}

// Store handles schedule persistence
type Store struct {
	db *db.DB
}

// NewStore creates a new schedule store
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const scheduleColumns = `id, name, description, cron_expr, tool, prefix, params, enabled,
	last_run_id, last_run_time, next_run_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	s := &Schedule{}
	var description sql.NullString
	err := row.Scan(
		&s.ID, &s.Name, &description, &s.CronExpr, &s.Tool, &s.Prefix, &s.Params,
		&s.Enabled, &s.LastRunID, &s.LastRunTime, &s.NextRunTime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	return s, nil
}

// Create creates a new schedule
func (s *Store) Create(schedule *Schedule) error {
	cronSchedule, err := ParseCron(schedule.CronExpr)
	if err != nil {
		return err
	}

	now := time.Now()
	nextRun := cronSchedule.Next(now)
	schedule.NextRunTime = &nextRun
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	result, err := s.db.Conn().Exec(
		`INSERT INTO schedules (name, description, cron_expr, tool, prefix, params, enabled, next_run_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schedule.Name, schedule.Description, schedule.CronExpr, schedule.Tool, schedule.Prefix,
		schedule.Params, schedule.Enabled, schedule.NextRunTime,
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	schedule.ID = id
	return nil
}

// Get retrieves a schedule by ID
func (s *Store) Get(id int64) (*Schedule, error) {
	return s.getOne(`WHERE id = ?`, id)
}

// GetByName retrieves a schedule by name
func (s *Store) GetByName(name string) (*Schedule, error) {
	return s.getOne(`WHERE name = ?`, name)
}

func (s *Store) getOne(where string, arg interface{}) (*Schedule, error) {
	schedule, err := scanSchedule(s.db.Conn().QueryRow(`SELECT `+scheduleColumns+` FROM schedules `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %v: %w", arg, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}

// List retrieves schedules based on filters
func (s *Store) List(filter Filter) ([]*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE 1=1`
	args := []interface{}{}

	if filter.Tool != "" {
		query += " AND tool = ?"
		args = append(args, filter.Tool)
	}

	if filter.Enabled != nil {
		query += " AND enabled = ?"
		args = append(args, *filter.Enabled)
	}

	query += " ORDER BY name"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return s.query(query, args...)
}

func (s *Store) query(query string, args ...interface{}) ([]*Schedule, error) {
	rows, err := s.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []*Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// Update updates a schedule
func (s *Store) Update(schedule *Schedule) error {
	cronSchedule, err := ParseCron(schedule.CronExpr)
	if err != nil {
		return err
	}

	now := time.Now()
	nextRun := cronSchedule.Next(now)
	schedule.NextRunTime = &nextRun
	schedule.UpdatedAt = now

	_, err = s.db.Conn().Exec(
		`UPDATE schedules SET name = ?, description = ?, cron_expr = ?, tool = ?, prefix = ?,
		 params = ?, enabled = ?, next_run_time = ?, updated_at = ?
		 WHERE id = ?`,
		schedule.Name, schedule.Description, schedule.CronExpr, schedule.Tool, schedule.Prefix,
		schedule.Params, schedule.Enabled, schedule.NextRunTime, schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// UpdateLastRun records a finished capture and advances the next run time
func (s *Store) UpdateLastRun(scheduleID int64, runID int64) error {
	schedule, err := s.Get(scheduleID)
	if err != nil {
		return err
	}

	cronSchedule, err := ParseCron(schedule.CronExpr)
	if err != nil {
		return err
	}

	now := time.Now()
	nextRun := cronSchedule.Next(now)

	_, err = s.db.Conn().Exec(
		`UPDATE schedules SET last_run_id = ?, last_run_time = ?, next_run_time = ?
		 WHERE id = ?`,
		runID, now, nextRun, scheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}
	return nil
}

// Enable enables a schedule and recalculates its next run from now
func (s *Store) Enable(id int64) error {
	schedule, err := s.Get(id)
	if err != nil {
		return err
	}

	cronSchedule, err := ParseCron(schedule.CronExpr)
	if err != nil {
		return err
	}

	_, err = s.db.Conn().Exec(
		`UPDATE schedules SET enabled = 1, next_run_time = ? WHERE id = ?`,
		cronSchedule.Next(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to enable schedule: %w", err)
	}
	return nil
}

// Disable disables a schedule
func (s *Store) Disable(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	_, err := s.db.Conn().Exec(`UPDATE schedules SET enabled = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to disable schedule: %w", err)
	}
	return nil
}

// Delete deletes a schedule
func (s *Store) Delete(id int64) error {
	result, err := s.db.Conn().Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule %d: %w", id, db.ErrNotFound)
	}
	return nil
}

// GetDue returns all schedules that are due to run
func (s *Store) GetDue() ([]*Schedule, error) {
	return s.query(
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE enabled = 1 AND (next_run_time IS NULL OR next_run_time <= ?)
		 ORDER BY next_run_time`,
		time.Now(),
	)
}
