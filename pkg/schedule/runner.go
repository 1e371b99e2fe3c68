package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mscrnt/ssdqual/pkg/db"
	"github.com/mscrnt/ssdqual/pkg/tool"
)

// Runner manages scheduled captures
type Runner struct {
	cron     *cron.Cron
	store    *Store
	database *db.DB
	lookup   func(name string) (tool.Tool, error)
	jobs     map[int64]cron.EntryID
	running  map[int64]bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	// one capture per tool at a time; runs of a tool share its executable
	// and export file
	toolLocks map[string]*sync.Mutex
}

// NewRunner creates a new schedule runner
func NewRunner(database *db.DB, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		cron:      cron.New(cron.WithParser(cronParser)),
		store:     NewStore(database),
		database:  database,
		lookup:    tool.Get,
		jobs:      make(map[int64]cron.EntryID),
		running:   make(map[int64]bool),
		toolLocks: make(map[string]*sync.Mutex),
		logger:    logger.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the scheduler
func (r *Runner) Start() error {
	r.logger.Info("starting scheduler")

	enabled := true
	schedules, err := r.store.List(Filter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	for _, schedule := range schedules {
		if err := r.registerSchedule(schedule); err != nil {
			r.logger.Error("failed to register schedule", "schedule", schedule.Name, "error", err)
		}
	}

	r.cron.Start()

	r.logger.Info("scheduler started", "active", r.activeJobs())
	return nil
}

// Stop stops the scheduler and waits for running captures
func (r *Runner) Stop() {
	r.logger.Info("stopping scheduler")

	r.cancel()
	ctx := r.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("all jobs completed")
	case <-time.After(5 * time.Minute):
		r.logger.Warn("timeout waiting for jobs to complete")
	}

	r.logger.Info("scheduler stopped")
}

// RegisterSchedule adds a schedule to the runner
func (r *Runner) RegisterSchedule(scheduleID int64) error {
	schedule, err := r.store.Get(scheduleID)
	if err != nil {
		return err
	}
	return r.registerSchedule(schedule)
}

// UnregisterSchedule removes a schedule from the runner
func (r *Runner) UnregisterSchedule(scheduleID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entryID, exists := r.jobs[scheduleID]; exists {
		r.cron.Remove(entryID)
		delete(r.jobs, scheduleID)
		r.logger.Info("unregistered schedule", "schedule_id", scheduleID)
	}
}

// RefreshSchedule re-reads a schedule and re-registers it if enabled
func (r *Runner) RefreshSchedule(scheduleID int64) error {
	r.UnregisterSchedule(scheduleID)

	schedule, err := r.store.Get(scheduleID)
	if err != nil {
		return err
	}
	return r.registerSchedule(schedule)
}

func (r *Runner) registerSchedule(schedule *Schedule) error {
	if !schedule.Enabled {
		return nil
	}

	entryID, err := r.cron.AddFunc(schedule.CronExpr, r.createJob(schedule))
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	r.mu.Lock()
	r.jobs[schedule.ID] = entryID
	r.mu.Unlock()

	r.logger.Info("registered schedule",
		"schedule", schedule.Name, "schedule_id", schedule.ID, "cron", schedule.CronExpr)
	return nil
}

func (r *Runner) createJob(schedule *Schedule) func() {
	return func() {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		r.logger.Info("executing scheduled capture", "schedule", schedule.Name)
		r.spawn(schedule)
	}
}

// spawn runs schedule in the background unless a capture for it is in flight
func (r *Runner) spawn(schedule *Schedule) {
	r.mu.Lock()
	if r.running[schedule.ID] {
		r.mu.Unlock()
		r.logger.Warn("capture still running, skipping", "schedule", schedule.Name)
		return
	}
	r.running[schedule.ID] = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.running, schedule.ID)
			r.mu.Unlock()
		}()
		if _, err := r.executeSchedule(schedule); err != nil {
			r.logger.Error("failed to execute schedule", "schedule", schedule.Name, "error", err)
		}
	}()
}

// executeSchedule captures one snapshot for schedule
func (r *Runner) executeSchedule(schedule *Schedule) (run *db.Run, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in schedule", "schedule", schedule.Name, "panic", p)
			err = fmt.Errorf("panic in schedule %s: %v", schedule.Name, p)
		}
	}()

	t, err := r.lookup(schedule.Tool)
	if err != nil {
		return nil, fmt.Errorf("tool not found: %w", err)
	}

	lock := r.toolLock(t.Name())
	lock.Lock()
	defer lock.Unlock()

	params := t.DefaultParams()
	if params.Config == nil {
		params.Config = make(map[string]interface{})
	}
	for k, v := range schedule.Params {
		if k == "drive" {
			if s, ok := v.(string); ok {
				params.Drive = s
			}
			continue
		}
		params.Config[k] = v
	}
	params.Prefix = ExpandPrefix(schedule.Prefix, time.Now())

	logger := r.logger.With("schedule", schedule.Name)
	run, _, runErr := Capture(r.ctx, r.database, t, params, logger)
	if run == nil {
		return nil, runErr
	}

	if err := r.store.UpdateLastRun(schedule.ID, run.ID); err != nil {
		logger.Error("failed to update schedule last run", "error", err)
	}
	return run, runErr
}

func (r *Runner) toolLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.toolLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.toolLocks[name] = lock
	}
	return lock
}

// CheckDue runs any overdue schedules immediately
func (r *Runner) CheckDue() error {
	schedules, err := r.store.GetDue()
	if err != nil {
		return fmt.Errorf("failed to get due schedules: %w", err)
	}

	for _, schedule := range schedules {
		r.logger.Info("running overdue schedule", "schedule", schedule.Name)
		r.spawn(schedule)
	}
	return nil
}

// Wait blocks until every capture started by the runner has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

// ListJobs returns information about all scheduled jobs
func (r *Runner) ListJobs() []cron.Entry {
	return r.cron.Entries()
}

func (r *Runner) activeJobs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
