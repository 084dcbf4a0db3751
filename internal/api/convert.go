package api

import (
	"sort"
	"time"

	"github.com/minhduonq/deep-vision/internal/engine"
	"github.com/minhduonq/deep-vision/internal/task"
)

// FromState converts a task snapshot into its transport form.
func FromState(state *task.State) Task {
	if state == nil {
		return Task{}
	}
	dto := Task{
		ID:           state.ID,
		TaskID:       state.TaskID,
		UserRequest:  state.UserRequest,
		Operation:    string(state.Operation),
		InputRef:     state.InputRef,
		OutputRef:    state.OutputRef,
		Status:       string(state.Status),
		Progress:     state.Progress,
		Context:      state.Context,
		Errors:       fromStageErrors(state.Errors),
		RetryCount:   state.RetryCount,
		MaxRetries:   state.MaxRetries,
		NeedsReview:  state.NeedsReview,
		ReviewReason: state.ReviewReason,
		ErrorMessage: state.ErrorMessage,
	}
	if !state.CreatedAt.IsZero() {
		dto.CreatedAt = state.CreatedAt.Format(time.RFC3339)
	}
	if !state.UpdatedAt.IsZero() {
		dto.UpdatedAt = state.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// FromStates converts a task slice, preserving order.
func FromStates(states []*task.State) []Task {
	if len(states) == 0 {
		return nil
	}
	out := make([]Task, 0, len(states))
	for _, state := range states {
		out = append(out, FromState(state))
	}
	return out
}

// fromStageErrors always yields a non-nil slice so the JSON field encodes as
// [] rather than null.
func fromStageErrors(errors []task.StageError) []StageError {
	out := make([]StageError, 0, len(errors))
	for _, stageErr := range errors {
		out = append(out, StageError{
			Stage:   stageErr.Stage,
			Message: stageErr.Message,
			Kind:    stageErr.Kind,
		})
	}
	return out
}

// FromStatusSummary converts engine diagnostics into the transport form.
func FromStatusSummary(summary engine.StatusSummary) EngineStatus {
	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}
	health := make([]StageHealth, 0, len(summary.StageHealth))
	for name, entry := range summary.StageHealth {
		health = append(health, StageHealth{
			Name:   name,
			Ready:  entry.Ready,
			Detail: entry.Detail,
		})
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	status := EngineStatus{
		Running:     summary.Running,
		Mode:        summary.Mode,
		LastError:   summary.LastError,
		QueueStats:  stats,
		StageHealth: health,
	}
	if summary.LastTask != nil {
		last := FromState(summary.LastTask)
		status.LastTask = &last
	}
	return status
}
