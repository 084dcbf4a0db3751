package task

import (
	"context"
	"fmt"
	"time"
)

// HistoryEntry is one terminal-transition record for a task.
type HistoryEntry struct {
	ID           int64
	TaskID       string
	Status       Status
	OutputRef    string
	ErrorMessage string
	RecordedAt   time.Time
}

// AppendHistory writes a terminal snapshot into the task_history table.
func (s *Store) AppendHistory(ctx context.Context, state *State) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO task_history (task_id, status, output_ref, error_message, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		state.TaskID,
		string(state.Status),
		state.OutputRef,
		state.ErrorMessage,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append history for task %s: %w", state.TaskID, err)
	}
	return nil
}

// HistoryFor returns the recorded terminal transitions for a task, oldest
// first.
func (s *Store) HistoryFor(ctx context.Context, taskID string) ([]HistoryEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, status, output_ref, error_message, recorded_at
		 FROM task_history WHERE task_id = ? ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var status, recordedAt string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &status, &entry.OutputRef, &entry.ErrorMessage, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Status = Status(status)
		if parsed, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			entry.RecordedAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
