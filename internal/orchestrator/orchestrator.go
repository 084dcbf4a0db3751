// Package orchestrator drives a claimed task through the analysis, execute,
// and validate stages, persisting the state after every stage transition.
//
// Two strategies exist: Sequential stops at the first failed stage;
// Conditional additionally flags low-confidence classifications for review
// and retries the execute stage up to the task's retry budget.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhduonq/deep-vision/internal/analysis"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Orchestrator runs one claimed task to a terminal status.
type Orchestrator interface {
	Run(ctx context.Context, state *task.State) error
	Mode() string
	Stages() []stage.Agent
}

// Recorder receives terminal snapshots after a task completes or fails. It
// is fired best-effort: a recorder failure is logged and never affects the
// task outcome.
type Recorder interface {
	RecordTerminal(ctx context.Context, state *task.State) error
}

type pipeline struct {
	analyzer  stage.Agent
	executor  stage.Agent
	validator stage.Agent
	registry  task.Registry
	recorder  Recorder
	logger    *slog.Logger
}

// persist writes the current state back to the registry. Pollers only ever
// see these committed snapshots, never the in-flight mutation.
func (p *pipeline) persist(ctx context.Context, state *task.State) error {
	if err := p.registry.Update(ctx, state); err != nil {
		return fmt.Errorf("orchestrator: persist task %s: %w", state.TaskID, err)
	}
	return nil
}

// finish commits the terminal snapshot and fires the recorder hook. The hook
// runs only after terminal transitions, exactly once per run.
func (p *pipeline) finish(ctx context.Context, state *task.State) error {
	if err := p.persist(ctx, state); err != nil {
		return err
	}
	if p.recorder != nil && state.IsTerminal() {
		if err := p.recorder.RecordTerminal(ctx, state); err != nil {
			p.logger.Warn(
				"terminal recorder failed",
				logging.String(logging.FieldTaskID, state.TaskID),
				logging.Error(err),
			)
		}
	}
	return nil
}

func (p *pipeline) runStage(ctx context.Context, agent stage.Agent, state *task.State) error {
	stage.SafeProcess(ctx, p.logger, agent, state)
	return p.persist(ctx, state)
}

// Sequential runs the three stages in order and stops at the first failure.
type Sequential struct {
	pipeline
}

// NewSequential builds the plain three-stage pipeline.
func NewSequential(analyzer, executor, validator stage.Agent, registry task.Registry, recorder Recorder, logger *slog.Logger) *Sequential {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sequential{pipeline{
		analyzer:  analyzer,
		executor:  executor,
		validator: validator,
		registry:  registry,
		recorder:  recorder,
		logger:    logger,
	}}
}

// Mode implements Orchestrator.
func (s *Sequential) Mode() string { return "sequential" }

// Stages implements Orchestrator.
func (s *Sequential) Stages() []stage.Agent {
	return []stage.Agent{s.analyzer, s.executor, s.validator}
}

// Run implements Orchestrator.
func (s *Sequential) Run(ctx context.Context, state *task.State) error {
	for _, agent := range s.Stages() {
		if state.Status == task.StatusFailed {
			break
		}
		if err := s.runStage(ctx, agent, state); err != nil {
			return err
		}
	}
	return s.finish(ctx, state)
}

// Conditional extends the sequential pipeline with review flagging and a
// bounded execute retry loop.
type Conditional struct {
	pipeline
	reviewConfidence float64
}

// NewConditional builds the review-and-retry pipeline. Classifications below
// reviewConfidence mark the task for human review without blocking it.
func NewConditional(analyzer, executor, validator stage.Agent, registry task.Registry, recorder Recorder, reviewConfidence float64, logger *slog.Logger) *Conditional {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Conditional{
		pipeline: pipeline{
			analyzer:  analyzer,
			executor:  executor,
			validator: validator,
			registry:  registry,
			recorder:  recorder,
			logger:    logger,
		},
		reviewConfidence: reviewConfidence,
	}
}

// Mode implements Orchestrator.
func (c *Conditional) Mode() string { return "conditional" }

// Stages implements Orchestrator.
func (c *Conditional) Stages() []stage.Agent {
	return []stage.Agent{c.analyzer, c.executor, c.validator}
}

// Run implements Orchestrator.
func (c *Conditional) Run(ctx context.Context, state *task.State) error {
	if err := c.runStage(ctx, c.analyzer, state); err != nil {
		return err
	}
	if state.Status == task.StatusFailed {
		return c.finish(ctx, state)
	}

	// Low classification confidence flags the task for review but does not
	// stop it; the flag travels with the terminal snapshot.
	if confidence := analysis.Confidence(state); confidence < c.reviewConfidence {
		state.NeedsReview = true
		state.ReviewReason = fmt.Sprintf(
			"classification confidence %.2f below review threshold %.2f",
			confidence, c.reviewConfidence,
		)
		c.logger.Info(
			"task flagged for review",
			logging.String(logging.FieldTaskID, state.TaskID),
			logging.Float64("confidence", confidence),
		)
		if err := c.persist(ctx, state); err != nil {
			return err
		}
	}

	// The retry decision happens before the executor snapshot is committed:
	// a failed status is terminal to pollers, so a run that will resume must
	// never persist one.
	for {
		stage.SafeProcess(ctx, c.logger, c.executor, state)
		if state.Status != task.StatusFailed {
			if err := c.persist(ctx, state); err != nil {
				return err
			}
			break
		}
		if state.RetryCount >= state.MaxRetries {
			c.logger.Warn(
				"execute retries exhausted",
				logging.String(logging.FieldTaskID, state.TaskID),
				logging.Int("retry_count", state.RetryCount),
			)
			return c.finish(ctx, state)
		}
		state.RetryCount++
		state.Status = task.StatusExecuting
		state.ErrorMessage = ""
		c.logger.Info(
			"retrying execute stage",
			logging.String(logging.FieldTaskID, state.TaskID),
			logging.Int("retry_count", state.RetryCount),
			logging.Int("max_retries", state.MaxRetries),
		)
		if err := c.persist(ctx, state); err != nil {
			return err
		}
	}

	if err := c.runStage(ctx, c.validator, state); err != nil {
		return err
	}
	return c.finish(ctx, state)
}

// New selects an orchestrator strategy by its configured mode name.
func New(mode string, analyzer, executor, validator stage.Agent, registry task.Registry, recorder Recorder, reviewConfidence float64, logger *slog.Logger) (Orchestrator, error) {
	switch mode {
	case "", "sequential":
		return NewSequential(analyzer, executor, validator, registry, recorder, logger), nil
	case "conditional":
		return NewConditional(analyzer, executor, validator, registry, recorder, reviewConfidence, logger), nil
	default:
		return nil, fmt.Errorf("orchestrator: unknown mode %q", mode)
	}
}
