package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mscrnt/ssdqual/pkg/db"
	"github.com/mscrnt/ssdqual/pkg/tool"
)

// timeoutGrace is added to a tool's own timeout for the run context
const timeoutGrace = 30 * time.Second

// Capture runs t once and records the run and its values in database.
// The run row is written even when the tool fails, so a failed capture
// still shows up in the history with its error.
func Capture(ctx context.Context, database *db.DB, t tool.Tool, params tool.Params, logger *slog.Logger) (*db.Run, tool.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := t.ValidateParams(params); err != nil {
		return nil, tool.Result{}, fmt.Errorf("invalid parameters: %w", err)
	}

	run, err := database.CreateRun(t.Name(), params.Prefix, recordedParams(params))
	if err != nil {
		return nil, tool.Result{}, fmt.Errorf("failed to create run record: %w", err)
	}
	logger.Info("run started", "run_id", run.ID, "tool", t.Name(), "prefix", params.Prefix)

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout+timeoutGrace)
		defer cancel()
	}

	result, runErr := t.Run(ctx, params)

	endTime := result.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}
	run.EndTime = &endTime
	run.Success = result.Success && runErr == nil
	run.Error = result.Error
	run.SnapshotPath = result.SnapshotPath
	if runErr != nil && run.Error == "" {
		run.Error = runErr.Error()
	}

	if err := database.UpdateRun(run); err != nil {
		logger.Error("failed to update run record", "run_id", run.ID, "error", err)
	}

	if len(result.Values) > 0 {
		values := make([]db.Value, 0, len(result.Values))
		for _, v := range result.Values {
			values = append(values, db.Value{Drive: v.Drive, Attribute: v.Attribute, Raw: v.Raw})
		}
		if err := database.CreateValues(run.ID, values); err != nil {
			logger.Error("failed to save values", "run_id", run.ID, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "run_id", run.ID, "error", runErr)
		return run, result, runErr
	}
	logger.Info("run completed", "run_id", run.ID, "values", len(result.Values), "duration", run.Duration())
	return run, result, nil
}

func recordedParams(params tool.Params) db.JSONData {
	data := make(db.JSONData, len(params.Config)+1)
	for k, v := range params.Config {
		data[k] = v
	}
	if params.Drive != "" {
		data["drive"] = params.Drive
	}
	return data
}
