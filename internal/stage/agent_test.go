package stage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

type stubAgent struct {
	name    string
	process func(*task.State) error
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Process(_ context.Context, state *task.State) error {
	if s.process != nil {
		return s.process(state)
	}
	return nil
}

func (s *stubAgent) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func TestSafeProcessSuccess(t *testing.T) {
	agent := &stubAgent{name: "analyze", process: func(state *task.State) error {
		state.Status = task.StatusAnalyzing
		state.SetProgress(20)
		return nil
	}}
	state := &task.State{TaskID: "t1", Status: task.StatusPending}

	stage.SafeProcess(context.Background(), logging.NewNop(), agent, state)

	if state.Status != task.StatusAnalyzing || state.Progress != 20 {
		t.Fatalf("unexpected state %s/%d", state.Status, state.Progress)
	}
	if len(state.Errors) != 0 {
		t.Fatalf("unexpected errors %v", state.Errors)
	}
}

func TestSafeProcessConvertsErrorToFailure(t *testing.T) {
	agent := &stubAgent{name: "execute", process: func(state *task.State) error {
		state.SetProgress(40)
		return services.Wrap(services.ErrNotFound, "execute", "check input", "input file missing", nil)
	}}
	state := &task.State{TaskID: "t1"}

	stage.SafeProcess(context.Background(), logging.NewNop(), agent, state)

	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if state.Progress != 40 {
		t.Fatalf("expected progress frozen at 40, got %d", state.Progress)
	}
	if len(state.Errors) != 1 {
		t.Fatalf("expected one error, got %v", state.Errors)
	}
	if state.Errors[0].Kind != string(services.ErrorKindNotFound) {
		t.Fatalf("unexpected kind %q", state.Errors[0].Kind)
	}
}

func TestSafeProcessRecoversPanic(t *testing.T) {
	agent := &stubAgent{name: "validate", process: func(*task.State) error {
		panic("boom")
	}}
	state := &task.State{TaskID: "t1"}

	stage.SafeProcess(context.Background(), logging.NewNop(), agent, state)

	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed after panic, got %s", state.Status)
	}
	if len(state.Errors) != 1 || state.Errors[0].Stage != "validate" {
		t.Fatalf("unexpected errors %v", state.Errors)
	}
}

func TestSafeProcessHonorsStateFailureWithoutError(t *testing.T) {
	// Stages that record their own failure return nil; SafeProcess must not
	// append a second error.
	agent := &stubAgent{name: "validate", process: func(state *task.State) error {
		state.MarkFailed("validate", "dimensions below minimum", "validation")
		return nil
	}}
	state := &task.State{TaskID: "t1"}

	stage.SafeProcess(context.Background(), logging.NewNop(), agent, state)

	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if len(state.Errors) != 1 {
		t.Fatalf("expected single error, got %v", state.Errors)
	}
}

func TestSafeProcessPlainError(t *testing.T) {
	agent := &stubAgent{name: "execute", process: func(*task.State) error {
		return errors.New("socket closed")
	}}
	state := &task.State{TaskID: "t1"}

	stage.SafeProcess(context.Background(), logging.NewNop(), agent, state)

	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if state.Errors[0].Kind != string(services.ErrorKindTransient) {
		t.Fatalf("unexpected kind %q", state.Errors[0].Kind)
	}
}
