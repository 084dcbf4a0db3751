// Package engine runs background task processing: a pool of workers claims
// pending tasks from the registry and drives each one through the
// orchestrator to a terminal status.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/orchestrator"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Engine coordinates background task processing.
type Engine struct {
	cfg           *config.Config
	store         *task.Store
	orch          orchestrator.Orchestrator
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	workerCount   int

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastTask *task.State
}

// New constructs the engine around a store and an orchestrator strategy.
func New(cfg *config.Config, store *task.Store, orch orchestrator.Orchestrator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	workerCount := cfg.Workflow.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Engine{
		cfg:           cfg,
		store:         store,
		orch:          orch,
		logger:        logger,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		workerCount:   workerCount,
	}
}

// Start begins background processing.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(e.workerCount)
	e.mu.Unlock()

	// A previous crash can leave tasks stuck in a processing status with no
	// owner; hand them back to the queue before workers start claiming.
	if reset, err := e.store.ResetStuckProcessing(runCtx); err != nil {
		e.logger.Warn("reset of stuck processing tasks failed", logging.Error(err))
	} else if reset > 0 {
		e.logger.Info("returned stuck tasks to the queue", logging.Int64("count", reset))
	}

	for i := 0; i < e.workerCount; i++ {
		go e.runWorker(runCtx, i)
	}
	e.logger.Info(
		"engine started",
		logging.Int("workers", e.workerCount),
		logging.String("mode", e.orch.Mode()),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight tasks.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

func (e *Engine) runWorker(ctx context.Context, id int) {
	defer e.wg.Done()
	logger := e.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		state, err := e.store.ClaimNext(ctx)
		if err != nil {
			e.setLastError(err)
			logger.Error(
				"failed to claim next task",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"),
			)
			e.waitOrShutdown(ctx, e.retryInterval)
			continue
		}
		if state == nil {
			e.waitOrShutdown(ctx, e.pollInterval)
			continue
		}

		e.setLastTask(state)
		e.processTask(ctx, logger, state)
	}
}

func (e *Engine) processTask(ctx context.Context, logger *slog.Logger, state *task.State) {
	taskLogger := logger.With(logging.String(logging.FieldTaskID, state.TaskID))

	// A cancellation that arrived while the task was still pending is
	// honored before any work starts. Once a worker owns the task it runs
	// to completion; the flag is not consulted again.
	if state.CancelRequested {
		state.MarkFailed("engine", "cancellation requested before processing", "transient")
		if err := e.store.Update(ctx, state); err != nil {
			e.setLastError(err)
			taskLogger.Error("failed to persist cancelled task", logging.Error(err))
		}
		taskLogger.Info("task cancelled before processing")
		return
	}

	taskLogger.Info(
		"task claimed",
		logging.String(logging.FieldEventType, "task_claimed"),
	)
	if err := e.orch.Run(ctx, state); err != nil {
		e.setLastError(err)
		taskLogger.Error(
			"task run failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "task_run_failed"),
		)
		return
	}
	e.setLastTask(state)
	taskLogger.Info(
		"task finished",
		logging.String("status", string(state.Status)),
		logging.Int("progress", state.Progress),
	)
}

func (e *Engine) waitOrShutdown(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (e *Engine) setLastError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

func (e *Engine) setLastTask(state *task.State) {
	e.mu.Lock()
	e.lastTask = state.Clone()
	e.mu.Unlock()
}
