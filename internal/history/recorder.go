// Package history persists terminal task transitions for later inspection.
// Recording is best-effort: a write failure is logged by the caller and
// never changes a task's outcome.
package history

import (
	"context"
	"log/slog"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Recorder appends completed and failed snapshots to the task_history table.
type Recorder struct {
	store  *task.Store
	logger *slog.Logger
}

// NewRecorder builds the terminal-transition recorder over the task store.
func NewRecorder(store *task.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// RecordTerminal writes one history row for a terminal snapshot. Non-terminal
// snapshots are ignored rather than treated as errors; the orchestrator only
// calls this after terminal transitions, but the guard keeps the table clean
// if a caller ever slips.
func (r *Recorder) RecordTerminal(ctx context.Context, state *task.State) error {
	if state == nil || !state.IsTerminal() {
		return nil
	}
	if err := r.store.AppendHistory(ctx, state); err != nil {
		r.logger.Warn(
			"history append failed",
			logging.String(logging.FieldTaskID, state.TaskID),
			logging.Error(err),
		)
		return err
	}
	r.logger.Debug(
		"terminal transition recorded",
		logging.String(logging.FieldTaskID, state.TaskID),
		logging.String("status", string(state.Status)),
	)
	return nil
}

// For returns the history rows for one task.
func (r *Recorder) For(ctx context.Context, taskID string) ([]task.HistoryEntry, error) {
	return r.store.HistoryFor(ctx, taskID)
}
