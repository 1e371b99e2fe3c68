package cdi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Controller runs one capture: kill stale tool instances, launch the tool,
// export its text report, parse and persist it, optionally screenshot, close.
// It can run synchronously with Run or in the background with Start.
type Controller struct {
	cfg     Config
	monitor Monitor
	parser  Parser
	logger  *slog.Logger
	kill    ProcessKiller

	stopped atomic.Bool

	mu     sync.Mutex
	status *bool
	record *Record
	err    error
	done   chan struct{}
}

// ControllerOption customizes a Controller
type ControllerOption func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProcessKiller replaces KillProcesses
func WithProcessKiller(kill ProcessKiller) ControllerOption {
	return func(c *Controller) {
		c.kill = kill
	}
}

// NewController validates cfg and creates a controller driving monitor
func NewController(cfg Config, monitor Monitor, opts ...ControllerOption) (*Controller, error) {
	if monitor == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:     cfg,
		monitor: monitor,
		logger:  slog.Default(),
		kill:    KillProcesses,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = Parser{Strict: cfg.Strict, Logger: c.logger}
	return c, nil
}

// Config returns the configuration the controller runs with
func (c *Controller) Config() Config {
	return c.cfg
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run performs the capture and returns the parsed record.
// Config.Timeout bounds the whole run.
func (c *Controller) Run(ctx context.Context) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var (
		rec    *Record
		opened bool
	)
	defer func() {
		if !opened {
			return
		}
		if err := c.monitor.Close(); err != nil {
			c.logger.Warn("failed to close tool", "error", err)
		}
	}()

	steps := []step{
		{"kill stale processes", c.killStale},
		{"create log directory", func(context.Context) error {
			return os.MkdirAll(c.cfg.LogPath, 0o755)
		}},
		{"open tool", func(ctx context.Context) error {
			opened = true
			return c.monitor.Open(ctx, c.cfg.ExecutablePath)
		}},
		{"export text report", func(ctx context.Context) error {
			return c.monitor.ExportText(ctx, c.cfg.TextPath())
		}},
		{"parse report", func(context.Context) error {
			var err error
			rec, err = c.parser.ParseFileAndPersist(c.cfg.TextPath(), c.cfg.JSONPath())
			return err
		}},
		{"capture screenshot", func(ctx context.Context) error {
			return c.screenshot(ctx, rec)
		}},
	}

	for _, s := range steps {
		if c.stopped.Load() {
			return nil, fmt.Errorf("%w before %s", ErrStopped, s.name)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("capture aborted before %s: %w", s.name, err)
		}
		c.logger.Debug("capture step", "step", s.name)
		if err := s.run(ctx); err != nil {
			return nil, fmt.Errorf("failed to %s: %w", s.name, err)
		}
	}

	c.logger.Info("capture complete", "report", c.cfg.TextPath(), "snapshot", c.cfg.JSONPath(), "disks", len(rec.Disks))
	return rec, nil
}

func (c *Controller) killStale(ctx context.Context) error {
	if c.kill == nil || c.cfg.ProcessName == "" {
		return nil
	}
	n, err := c.kill(ctx, c.cfg.ProcessName)
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.Info("killed stale processes", "name", c.cfg.ProcessName, "count", n)
	}
	return nil
}

// screenshot captures the tool window when a PNG name is configured.
// ErrScreenshotUnsupported is logged and ignored.
func (c *Controller) screenshot(ctx context.Context, rec *Record) error {
	if c.cfg.PNGName == "" {
		return nil
	}

	req := ScreenshotRequest{
		Path:        filepath.Join(c.cfg.LogPath, c.cfg.LogPrefix+c.cfg.PNGName),
		DriveLetter: c.cfg.ScreenshotDriveLetter,
		WindowTitle: c.cfg.WindowTitle,
		WindowClass: c.cfg.WindowClass,
	}
	if req.DriveLetter != "" {
		var err error
		if req.Model, err = rec.DriveInfo(req.DriveLetter, keyModel); err != nil {
			return err
		}
		if req.DiskNum, err = rec.DriveInfo(req.DriveLetter, keyDiskNum); err != nil {
			return err
		}
	}

	err := c.monitor.CaptureScreenshot(ctx, req)
	if errors.Is(err, ErrScreenshotUnsupported) {
		c.logger.Warn("screenshot skipped", "reason", err)
		return nil
	}
	return err
}

// Start runs the capture in the background. It panics if already started.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		panic("cdi: controller already started")
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		rec, err := c.Run(ctx)
		ok := err == nil

		c.mu.Lock()
		c.record, c.err, c.status = rec, err, &ok
		c.mu.Unlock()

		if err != nil {
			c.logger.Error("capture failed", "error", err)
		}
	}()
}

// Wait blocks until a started capture finishes
func (c *Controller) Wait() (*Record, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil, errors.New("controller not started")
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record, c.err
}

// Status returns nil while running or not started, then the outcome
func (c *Controller) Status() *bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil
	}
	v := *c.status
	return &v
}

// Stop asks a running capture to halt before its next step
func (c *Controller) Stop() {
	c.stopped.Store(true)
	c.logger.Info("capture stop requested")
}
