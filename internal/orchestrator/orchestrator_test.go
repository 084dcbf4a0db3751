package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

type scriptedAgent struct {
	name    string
	process func(*task.State) error
	calls   int
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Process(_ context.Context, state *task.State) error {
	a.calls++
	if a.process != nil {
		return a.process(state)
	}
	return nil
}

func (a *scriptedAgent) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(a.name)
}

func passingAnalyzer(confidence float64) *scriptedAgent {
	return &scriptedAgent{name: "analyze", process: func(state *task.State) error {
		state.Status = task.StatusAnalyzing
		state.SetProgress(10)
		state.Operation = task.OpRestore
		state.SetContext("analysis", map[string]any{"confidence": confidence})
		state.SetProgress(20)
		return nil
	}}
}

func passingExecutor() *scriptedAgent {
	return &scriptedAgent{name: "execute", process: func(state *task.State) error {
		state.Status = task.StatusExecuting
		state.SetProgress(40)
		state.OutputRef = "/tmp/out.png"
		state.SetProgress(70)
		return nil
	}}
}

func passingValidator() *scriptedAgent {
	return &scriptedAgent{name: "validate", process: func(state *task.State) error {
		state.Status = task.StatusValidating
		state.SetProgress(80)
		state.MarkCompleted()
		return nil
	}}
}

type memoryRegistry struct {
	mu      sync.Mutex
	updates []*task.State
}

func (m *memoryRegistry) Create(context.Context, task.NewTask) (*task.State, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryRegistry) GetByTaskID(context.Context, string) (*task.State, error) {
	return nil, nil
}

func (m *memoryRegistry) Update(_ context.Context, state *task.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, state.Clone())
	return nil
}

func (m *memoryRegistry) ClaimNext(context.Context) (*task.State, error) { return nil, nil }

func (m *memoryRegistry) List(context.Context, ...task.Status) ([]*task.State, error) {
	return nil, nil
}

func (m *memoryRegistry) Stats(context.Context) (map[task.Status]int, error) {
	return nil, nil
}

type captureRecorder struct {
	records []*task.State
	err     error
}

func (r *captureRecorder) RecordTerminal(_ context.Context, state *task.State) error {
	r.records = append(r.records, state.Clone())
	return r.err
}

func TestSequentialHappyPath(t *testing.T) {
	analyzer := passingAnalyzer(0.9)
	executor := passingExecutor()
	validator := passingValidator()
	registry := &memoryRegistry{}
	recorder := &captureRecorder{}

	orch := NewSequential(analyzer, executor, validator, registry, recorder, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.Status != task.StatusCompleted || state.Progress != 100 {
		t.Fatalf("unexpected terminal state %s/%d", state.Status, state.Progress)
	}
	if analyzer.calls != 1 || executor.calls != 1 || validator.calls != 1 {
		t.Fatalf("each stage must run once, got %d/%d/%d", analyzer.calls, executor.calls, validator.calls)
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorder must fire exactly once, got %d", len(recorder.records))
	}
	if recorder.records[0].Status != task.StatusCompleted {
		t.Fatalf("recorder got non-terminal snapshot %s", recorder.records[0].Status)
	}
	// One persisted snapshot per stage plus the terminal commit.
	if len(registry.updates) < 3 {
		t.Fatalf("expected a write-back after every stage, got %d", len(registry.updates))
	}
}

func TestSequentialStopsAtFirstFailure(t *testing.T) {
	analyzer := passingAnalyzer(0.9)
	executor := &scriptedAgent{name: "execute", process: func(state *task.State) error {
		state.Status = task.StatusExecuting
		state.SetProgress(40)
		return services.Wrap(services.ErrProvider, "execute", "restore", "all providers failed", nil)
	}}
	validator := passingValidator()
	registry := &memoryRegistry{}
	recorder := &captureRecorder{}

	orch := NewSequential(analyzer, executor, validator, registry, recorder, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if validator.calls != 0 {
		t.Fatal("validator must not run after executor failure")
	}
	if executor.calls != 1 {
		t.Fatalf("sequential mode never retries, got %d executor calls", executor.calls)
	}
	if state.Progress != 40 {
		t.Fatalf("progress must freeze at failure, got %d", state.Progress)
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorder must fire exactly once, got %d", len(recorder.records))
	}
}

func TestConditionalFlagsLowConfidence(t *testing.T) {
	orch := NewConditional(passingAnalyzer(0.3), passingExecutor(), passingValidator(),
		&memoryRegistry{}, &captureRecorder{}, 0.5, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !state.NeedsReview {
		t.Fatal("low confidence must flag the task for review")
	}
	if state.Status != task.StatusCompleted {
		t.Fatalf("review flag must not block completion, got %s", state.Status)
	}
}

func TestConditionalNoFlagAtThreshold(t *testing.T) {
	// Exactly at the threshold is not below it.
	orch := NewConditional(passingAnalyzer(0.5), passingExecutor(), passingValidator(),
		&memoryRegistry{}, &captureRecorder{}, 0.5, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.NeedsReview {
		t.Fatal("confidence at the threshold must not flag review")
	}
}

func TestConditionalRetriesExecutor(t *testing.T) {
	attempts := 0
	executor := &scriptedAgent{name: "execute", process: func(state *task.State) error {
		attempts++
		state.Status = task.StatusExecuting
		state.SetProgress(40)
		if attempts < 3 {
			return services.Wrap(services.ErrProvider, "execute", "restore", "transient provider failure", nil)
		}
		state.OutputRef = "/tmp/out.png"
		state.SetProgress(70)
		return nil
	}}
	recorder := &captureRecorder{}
	orch := NewConditional(passingAnalyzer(0.9), executor, passingValidator(),
		&memoryRegistry{}, recorder, 0.5, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.Status != task.StatusCompleted {
		t.Fatalf("expected completed after retries, got %s (%v)", state.Status, state.Errors)
	}
	if state.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", state.RetryCount)
	}
	if executor.calls != 3 {
		t.Fatalf("expected 3 executor attempts, got %d", executor.calls)
	}
	// The two failed attempts stay on the record even after success.
	if len(state.Errors) != 2 {
		t.Fatalf("expected 2 recorded attempt failures, got %v", state.Errors)
	}
}

func TestConditionalRetrySnapshotsNeverFailed(t *testing.T) {
	// A run that recovers must look like executing -> executing to anyone
	// polling the registry; the failed status is reserved for terminal tasks.
	attempts := 0
	executor := &scriptedAgent{name: "execute", process: func(state *task.State) error {
		attempts++
		state.Status = task.StatusExecuting
		state.SetProgress(40)
		if attempts == 1 {
			return services.Wrap(services.ErrProvider, "execute", "restore", "transient provider failure", nil)
		}
		state.OutputRef = "/tmp/out.png"
		state.SetProgress(70)
		return nil
	}}
	registry := &memoryRegistry{}
	orch := NewConditional(passingAnalyzer(0.9), executor, passingValidator(),
		registry, &captureRecorder{}, 0.5, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.Status != task.StatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	for i, snapshot := range registry.updates {
		if snapshot.Status == task.StatusFailed {
			t.Fatalf("update %d persisted a failed snapshot on a run that completed", i)
		}
		if snapshot.Status == task.StatusExecuting && snapshot.ErrorMessage != "" {
			t.Fatalf("update %d carries error message %q on a non-terminal snapshot", i, snapshot.ErrorMessage)
		}
	}
}

func TestConditionalRetryExhaustion(t *testing.T) {
	executor := &scriptedAgent{name: "execute", process: func(state *task.State) error {
		state.Status = task.StatusExecuting
		state.SetProgress(40)
		return services.Wrap(services.ErrProvider, "execute", "restore", "provider down", nil)
	}}
	validator := passingValidator()
	recorder := &captureRecorder{}
	orch := NewConditional(passingAnalyzer(0.9), executor, validator,
		&memoryRegistry{}, recorder, 0.5, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 2}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.Status != task.StatusFailed {
		t.Fatalf("expected failed after exhaustion, got %s", state.Status)
	}
	// Initial attempt plus MaxRetries retries.
	if executor.calls != 3 {
		t.Fatalf("expected 3 executor attempts, got %d", executor.calls)
	}
	if state.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", state.RetryCount)
	}
	if validator.calls != 0 {
		t.Fatal("validator must not run after retry exhaustion")
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorder must fire exactly once, got %d", len(recorder.records))
	}
}

func TestRecorderFailureDoesNotSurface(t *testing.T) {
	recorder := &captureRecorder{err: errors.New("history table locked")}
	orch := NewSequential(passingAnalyzer(0.9), passingExecutor(), passingValidator(),
		&memoryRegistry{}, recorder, logging.NewNop())
	state := &task.State{TaskID: "t1", Status: task.StatusPending, MaxRetries: 3}

	if err := orch.Run(context.Background(), state); err != nil {
		t.Fatalf("recorder failure must not surface: %v", err)
	}
	if state.Status != task.StatusCompleted {
		t.Fatalf("unexpected status %s", state.Status)
	}
}

func TestNewSelectsMode(t *testing.T) {
	registry := &memoryRegistry{}
	analyzer, executor, validator := passingAnalyzer(0.9), passingExecutor(), passingValidator()

	seq, err := New("sequential", analyzer, executor, validator, registry, nil, 0.5, logging.NewNop())
	if err != nil || seq.Mode() != "sequential" {
		t.Fatalf("unexpected orchestrator %v/%v", seq, err)
	}
	cond, err := New("conditional", analyzer, executor, validator, registry, nil, 0.5, logging.NewNop())
	if err != nil || cond.Mode() != "conditional" {
		t.Fatalf("unexpected orchestrator %v/%v", cond, err)
	}
	if _, err := New("bogus", analyzer, executor, validator, registry, nil, 0.5, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
