package execute

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/provider"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/task"
)

type recordingProvider struct {
	name   string
	result provider.Result
	err    error
	calls  int
}

func (r *recordingProvider) Name() string { return r.name }

func (r *recordingProvider) Invoke(context.Context, provider.Request) (provider.Result, error) {
	r.calls++
	return r.result, r.err
}

func (r *recordingProvider) HealthCheck(context.Context) error { return nil }

func newExecutor(t *testing.T, outputDir string, backends ...provider.Provider) (*Executor, []*recordingProvider) {
	t.Helper()
	names := make([]string, 0, len(backends))
	catalog := make(map[string]provider.Provider, len(backends))
	recorders := make([]*recordingProvider, 0, len(backends))
	for _, backend := range backends {
		names = append(names, backend.Name())
		catalog[backend.Name()] = backend
		if rec, ok := backend.(*recordingProvider); ok {
			recorders = append(recorders, rec)
		}
	}
	selector, err := provider.NewSelector(config.Providers{
		Chains: map[string][]string{
			"restore":  names,
			"generate": names,
		},
	}, catalog, logging.NewNop())
	if err != nil {
		t.Fatalf("NewSelector returned error: %v", err)
	}
	return NewExecutor(selector, outputDir, logging.NewNop()), recorders
}

func TestExecutorMissingInputNoProviderCall(t *testing.T) {
	backend := &recordingProvider{name: "primary", result: provider.Result{Success: true}}
	executor, _ := newExecutor(t, t.TempDir(), backend)
	state := &task.State{
		TaskID:    "t1",
		Operation: task.OpRestore,
		InputRef:  filepath.Join(t.TempDir(), "missing.png"),
	}

	err := executor.Process(context.Background(), state)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if backend.calls != 0 {
		t.Fatalf("no provider may be invoked before the input gate, got %d calls", backend.calls)
	}
	if state.Status == task.StatusExecuting {
		t.Fatal("status must not advance past the input gate")
	}
}

func TestExecutorSuccess(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.png")
	if err := os.WriteFile(input, []byte("image-bytes"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	backend := &recordingProvider{
		name:   "primary",
		result: provider.Result{Success: true, OutputRef: filepath.Join(dir, "out.png")},
	}
	executor, _ := newExecutor(t, dir, backend)
	state := &task.State{TaskID: "t1", Operation: task.OpRestore, InputRef: input}

	if err := executor.Process(context.Background(), state); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if state.Status != task.StatusExecuting {
		t.Fatalf("unexpected status %s", state.Status)
	}
	if state.Progress != 70 {
		t.Fatalf("unexpected progress %d", state.Progress)
	}
	if state.OutputRef != backend.result.OutputRef {
		t.Fatalf("unexpected output ref %q", state.OutputRef)
	}
	raw, ok := state.ContextValue("execution")
	if !ok {
		t.Fatal("execution metadata missing")
	}
	meta := raw.(map[string]any)
	if meta["provider"] != "primary" {
		t.Fatalf("unexpected provider bookkeeping %v", meta)
	}
}

func TestExecutorGenerateNeedsNoInput(t *testing.T) {
	backend := &recordingProvider{name: "primary", result: provider.Result{Success: true, OutputRef: "/tmp/out.png"}}
	executor, _ := newExecutor(t, t.TempDir(), backend)
	state := &task.State{TaskID: "t1", Operation: task.OpGenerate, UserRequest: "a sunset"}

	if err := executor.Process(context.Background(), state); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("expected one provider call, got %d", backend.calls)
	}
}

func TestExecutorChainExhaustion(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.png")
	if err := os.WriteFile(input, []byte("image-bytes"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	primary := &recordingProvider{name: "primary", err: errors.New("first")}
	fallback := &recordingProvider{name: "fallback", err: errors.New("second")}
	executor, _ := newExecutor(t, dir, primary, fallback)
	state := &task.State{TaskID: "t1", Operation: task.OpRestore, InputRef: input}

	err := executor.Process(context.Background(), state)
	if err == nil {
		t.Fatal("expected error after chain exhaustion")
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected one call each, got %d/%d", primary.calls, fallback.calls)
	}
}
