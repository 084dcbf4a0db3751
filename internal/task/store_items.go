package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const stateColumns = `id, task_id, created_at, updated_at, user_request, operation,
    input_ref, output_ref, status, progress, context_json, errors_json,
    retry_count, max_retries, needs_review, review_reason, cancel_requested, error_message`

// NewTask carries the caller-supplied fields for task creation.
type NewTask struct {
	UserRequest string
	InputRef    string
	Operation   OperationKind
	MaxRetries  int
}

// Create inserts a new pending task and returns its stored state.
func (s *Store) Create(ctx context.Context, req NewTask) (*State, error) {
	if strings.TrimSpace(req.UserRequest) == "" {
		return nil, errors.New("user request is required")
	}
	operation := req.Operation
	if operation == "" {
		operation = OpUnknown
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	taskID := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO tasks (
            task_id, created_at, updated_at, user_request, operation,
            input_ref, status, progress, max_retries
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskID,
		timestamp,
		timestamp,
		req.UserRequest,
		string(operation),
		req.InputRef,
		string(StatusPending),
		0,
		maxRetries,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a task by its database identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*State, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM tasks WHERE id = ?`, id)
	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return state, nil
}

// GetByTaskID fetches a task by its opaque task identifier. A missing task
// yields (nil, nil).
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*State, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM tasks WHERE task_id = ?`, taskID)
	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by task_id: %w", err)
	}
	return state, nil
}

// Update persists changes to an existing task. The stored row is replaced
// wholesale so a subsequent read always observes a complete snapshot.
func (s *Store) Update(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("state is nil")
	}
	state.UpdatedAt = time.Now().UTC()

	contextJSON, err := encodeContext(state.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	errorsJSON, err := encodeErrors(state.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET
            updated_at = ?, user_request = ?, operation = ?, input_ref = ?,
            output_ref = ?, status = ?, progress = ?, context_json = ?,
            errors_json = ?, retry_count = ?, max_retries = ?, needs_review = ?,
            review_reason = ?, cancel_requested = ?, error_message = ?
        WHERE id = ?`,
		state.UpdatedAt.Format(time.RFC3339Nano),
		state.UserRequest,
		string(state.Operation),
		state.InputRef,
		state.OutputRef,
		string(state.Status),
		state.Progress,
		contextJSON,
		errorsJSON,
		state.RetryCount,
		state.MaxRetries,
		boolToInt(state.NeedsReview),
		state.ReviewReason,
		boolToInt(state.CancelRequested),
		state.ErrorMessage,
		state.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d not found", state.ID)
	}
	return nil
}

// ClaimNext atomically transitions the oldest pending task to analyzing and
// returns it. The conditional UPDATE guarantees no two callers ever claim the
// same task, which is what keeps one executor per task ID. Returns (nil, nil)
// when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context) (*State, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var claimedID int64
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE tasks SET status = ?, updated_at = ?
             WHERE id = (SELECT id FROM tasks WHERE status = ? ORDER BY id LIMIT 1)
               AND status = ?
             RETURNING id`,
			string(StatusAnalyzing),
			timestamp,
			string(StatusPending),
			string(StatusPending),
		)
		return row.Scan(&claimedID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	return s.GetByID(ctx, claimedID)
}

// List returns tasks, optionally filtered to the provided statuses, newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*State, error) {
	query := `SELECT ` + stateColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// RetryFailed resets failed tasks back to pending. With no IDs, every failed
// task is reset. Retry bookkeeping starts over for the new run.
func (s *Store) RetryFailed(ctx context.Context, taskIDs ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE tasks SET status = ?, updated_at = ?, retry_count = 0,
        error_message = '', cancel_requested = 0 WHERE status = ?`
	args := []any{string(StatusPending), timestamp, string(StatusFailed)}
	if len(taskIDs) > 0 {
		placeholders := make([]string, len(taskIDs))
		for i, id := range taskIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND task_id IN (` + strings.Join(placeholders, ", ") + `)`
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed tasks: %w", err)
	}
	return res.RowsAffected()
}

// RequestCancel flags a task for cancellation. In-flight provider calls are
// not interrupted; the orchestrator observes the flag between stages.
func (s *Store) RequestCancel(ctx context.Context, taskID string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET cancel_requested = 1, updated_at = ? WHERE task_id = ?`,
		timestamp,
		taskID,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Remove deletes a task by task identifier.
func (s *Store) Remove(ctx context.Context, taskID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return false, fmt.Errorf("remove task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearCompleted removes all completed tasks.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks WHERE status = ?`, string(StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every task from the registry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("clear tasks: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	var (
		state           State
		createdAt       string
		updatedAt       string
		operation       string
		status          string
		contextJSON     string
		errorsJSON      string
		needsReview     int
		cancelRequested int
	)

	err := row.Scan(
		&state.ID,
		&state.TaskID,
		&createdAt,
		&updatedAt,
		&state.UserRequest,
		&operation,
		&state.InputRef,
		&state.OutputRef,
		&status,
		&state.Progress,
		&contextJSON,
		&errorsJSON,
		&state.RetryCount,
		&state.MaxRetries,
		&needsReview,
		&state.ReviewReason,
		&cancelRequested,
		&state.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	state.Operation = OperationKind(operation)
	state.Status = Status(status)
	state.NeedsReview = needsReview != 0
	state.CancelRequested = cancelRequested != 0

	if state.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if state.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if state.Context, err = decodeContext(contextJSON); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	if state.Errors, err = decodeErrors(errorsJSON); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}

	return &state, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func encodeContext(ctx map[string]any) (string, error) {
	if len(ctx) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(ctx)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeContext(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	decoded := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func encodeErrors(errs []StageError) (string, error) {
	if errs == nil {
		errs = []StageError{}
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeErrors(raw string) ([]StageError, error) {
	if strings.TrimSpace(raw) == "" {
		return []StageError{}, nil
	}
	decoded := []StageError{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
