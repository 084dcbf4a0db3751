package daemon_test

import (
	"context"
	"testing"

	"github.com/minhduonq/deep-vision/internal/analysis"
	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/daemon"
	"github.com/minhduonq/deep-vision/internal/engine"
	"github.com/minhduonq/deep-vision/internal/execute"
	"github.com/minhduonq/deep-vision/internal/history"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/orchestrator"
	"github.com/minhduonq/deep-vision/internal/provider"
	"github.com/minhduonq/deep-vision/internal/task"
	"github.com/minhduonq/deep-vision/internal/testsupport"
	"github.com/minhduonq/deep-vision/internal/validate"
)

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *task.Store) {
	t.Helper()
	logger := logging.NewNop()

	store, err := task.Open(cfg)
	if err != nil {
		t.Fatalf("task.Open: %v", err)
	}

	selector, err := provider.NewSelector(cfg.Providers, provider.BuildCatalog(cfg.Providers), logger)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	analyzer := analysis.NewAnalyzer(analysis.NewRuleClassifier(), logger)
	executor := execute.NewExecutor(selector, cfg.Paths.OutputDir, logger)
	validator := validate.NewValidator(cfg.Validation, logger)
	recorder := history.NewRecorder(store, logger)

	orch, err := orchestrator.New(cfg.Workflow.Mode, analyzer, executor, validator,
		store, recorder, cfg.Validation.ReviewConfidence, logger)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	eng := engine.New(cfg, store, orch, logger)

	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("incomplete status %+v", status)
	}
	if d.APIAddr() == "" {
		t.Fatal("api server should be listening")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must be rejected")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, _ := newTestDaemon(t, cfg)
	if err := second.Start(ctx); err == nil {
		t.Fatal("second instance must fail to acquire the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("lock should be free after Stop: %v", err)
	}
	second.Stop()
}

func TestDaemonStoreMaintenance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)

	ctx := context.Background()
	state := testsupport.NewTask(t, store, "restore this photo", "/tmp/in.png")
	state.MarkFailed("execute", "provider unavailable", "provider")
	if err := store.Update(ctx, state); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tasks, err := d.ListTasks(ctx, task.StatusFailed)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 failed task, got %d", len(tasks))
	}

	reset, err := d.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset task, got %d", reset)
	}

	removed, err := d.Remove(ctx, state.TaskID)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
}
