package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Agent describes the contract the orchestrator needs from each pipeline
// stage. Process mutates the supplied state in place; a returned error means
// the stage could not complete its work for this attempt.
type Agent interface {
	Name() string
	Process(ctx context.Context, state *task.State) error
	HealthCheck(ctx context.Context) Health
}

// SafeProcess runs an agent and guarantees that no failure escapes to the
// caller: errors and panics are converted into state mutations (appended
// stage error, failed status) so the orchestrator only ever inspects
// state.Status. Start, success, and failure are logged with stage context.
func SafeProcess(ctx context.Context, logger *slog.Logger, agent Agent, state *task.State) {
	stageCtx := services.WithStage(services.WithTaskID(ctx, state.TaskID), agent.Name())
	stageLogger := logging.WithContext(stageCtx, logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldOperation, string(state.Operation)),
		logging.Int("progress", state.Progress),
	)

	err := runRecovered(stageCtx, agent, state)
	if err == nil && state.Status != task.StatusFailed {
		stageLogger.Info(
			"stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("status", string(state.Status)),
			logging.Int("progress", state.Progress),
		)
		return
	}

	if err != nil {
		details := services.Details(err)
		message := details.Message
		if message == "" {
			message = err.Error()
		}
		state.MarkFailed(agent.Name(), message, string(details.Kind))
	}

	last, _ := state.LastError()
	stageLogger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorKind, last.Kind),
		logging.String("error_message", last.Message),
	)
}

func runRecovered(ctx context.Context, agent Agent, state *task.State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, agent.Name(), "process", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return agent.Process(ctx, state)
}
