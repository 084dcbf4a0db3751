package engine

import (
	"context"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

// StatusSummary represents lightweight engine diagnostics.
type StatusSummary struct {
	Running     bool
	Mode        string
	LastError   string
	LastTask    *task.State
	QueueStats  map[task.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest engine information.
func (e *Engine) Status(ctx context.Context) StatusSummary {
	e.mu.RLock()
	running := e.running
	lastErr := e.lastErr
	lastTask := e.lastTask
	e.mu.RUnlock()

	stats, err := e.store.Stats(ctx)
	if err != nil {
		e.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	agents := e.orch.Stages()
	health := make(map[string]stage.Health, len(agents))
	for _, agent := range agents {
		health[agent.Name()] = agent.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		Mode:        e.orch.Mode(),
		QueueStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastTask != nil {
		summary.LastTask = lastTask.Clone()
	}
	return summary
}
