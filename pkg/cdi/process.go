package cdi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessKiller terminates every process with the given executable name
// and returns how many were killed
type ProcessKiller func(ctx context.Context, name string) (int, error)

// KillProcesses kills all running processes named name, ignoring case.
// Processes that exit or deny access while being inspected are skipped.
func KillProcesses(ctx context.Context, name string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	killed := 0
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(pname, name) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			slog.Warn("failed to kill process", "name", pname, "pid", p.Pid, "error", err)
			continue
		}
		killed++
	}
	return killed, nil
}
