package cdi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForFile blocks until path exists and is non-empty, or ctx is done.
// Directory events wake the wait early; interval is the fallback poll
// for filesystems that do not deliver events.
func WaitForFile(ctx context.Context, path string, interval time.Duration) error {
	if fileReady(path) {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	var events chan fsnotify.Event
	var errs chan error
	if err := watcher.Add(filepath.Dir(path)); err == nil {
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	target := filepath.Clean(path)
	for {
		// The file may have appeared before the watch was registered
		if fileReady(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrReportMissing, path, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-ticker.C:
		}
	}
}

func fileReady(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
