package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/engine"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Daemon coordinates background task processing and enforces single-instance
// execution via a filesystem lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *task.Store
	engine *engine.Engine

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Engine       engine.StatusSummary
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *task.Store, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil {
		return nil, errors.New("daemon requires config, store, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "deepvisiond.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   eng,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the engine and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another deep-vision daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.engine.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start engine: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.engine.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListTasks returns tasks filtered by optional statuses, newest first.
func (d *Daemon) ListTasks(ctx context.Context, statuses ...task.Status) ([]*task.State, error) {
	if d.store == nil {
		return nil, errors.New("task store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// RetryFailed resets failed tasks (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, taskIDs []string) (int64, error) {
	if d.store == nil {
		return 0, errors.New("task store unavailable")
	}
	return d.store.RetryFailed(ctx, taskIDs...)
}

// RequestCancel flags a task for cancellation. It reports false when no
// task with that id exists.
func (d *Daemon) RequestCancel(ctx context.Context, taskID string) (bool, error) {
	if d.store == nil {
		return false, errors.New("task store unavailable")
	}
	return d.store.RequestCancel(ctx, taskID)
}

// Remove deletes a task record outright.
func (d *Daemon) Remove(ctx context.Context, taskID string) (bool, error) {
	if d.store == nil {
		return false, errors.New("task store unavailable")
	}
	return d.store.Remove(ctx, taskID)
}

// ClearCompleted removes completed tasks from the registry.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("task store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ResetStuck transitions in-flight tasks back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("task store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// RegistryHealth returns aggregate registry diagnostics.
func (d *Daemon) RegistryHealth(ctx context.Context) (task.HealthSummary, error) {
	if d.store == nil {
		return task.HealthSummary{}, errors.New("task store unavailable")
	}
	return d.store.Health(ctx)
}

// APIAddr reports the bound API listener address, or "" when the server is
// not listening.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Engine:       d.engine.Status(ctx),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}
