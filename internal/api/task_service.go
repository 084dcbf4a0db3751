package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minhduonq/deep-vision/internal/task"
)

// TaskService exposes task operations returning API DTOs.
type TaskService struct {
	registry task.Registry
}

// NewTaskService constructs a TaskService around the provided registry.
func NewTaskService(registry task.Registry) *TaskService {
	if registry == nil {
		return nil
	}
	return &TaskService{registry: registry}
}

// Submit validates and enqueues a new task.
func (s *TaskService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if s == nil || s.registry == nil {
		return nil, errors.New("task registry unavailable")
	}
	userRequest := strings.TrimSpace(req.UserRequest)
	if userRequest == "" {
		return nil, errors.New("user_request is required")
	}
	operation := task.OpUnknown
	if trimmed := strings.TrimSpace(req.Operation); trimmed != "" {
		parsed, ok := task.ParseOperation(trimmed)
		if !ok {
			return nil, fmt.Errorf("unknown operation %q", trimmed)
		}
		operation = parsed
	}
	state, err := s.registry.Create(ctx, task.NewTask{
		UserRequest: userRequest,
		InputRef:    strings.TrimSpace(req.InputRef),
		Operation:   operation,
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{TaskID: state.TaskID, Status: string(state.Status)}, nil
}

// List returns tasks filtered by status, newest first, capped at limit when
// limit is positive.
func (s *TaskService) List(ctx context.Context, limit int, statuses ...task.Status) ([]Task, error) {
	if s == nil || s.registry == nil {
		return nil, nil
	}
	states, err := s.registry.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}
	return FromStates(states), nil
}

// Describe fetches a single task snapshot. A nil result means the task does
// not exist.
func (s *TaskService) Describe(ctx context.Context, taskID string) (*Task, error) {
	if s == nil || s.registry == nil {
		return nil, nil
	}
	state, err := s.registry.GetByTaskID(ctx, taskID)
	if err != nil || state == nil {
		return nil, err
	}
	dto := FromState(state)
	return &dto, nil
}

// Stats returns queue summary counts keyed by status string.
func (s *TaskService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.registry == nil {
		return nil, nil
	}
	stats, err := s.registry.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out, nil
}
