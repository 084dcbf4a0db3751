// Package execute runs the transformation stage: it gates on the input
// artifact, dispatches to the provider selector, and records the produced
// output on the workflow state.
package execute

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/minhduonq/deep-vision/internal/analysis"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/provider"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

const agentName = "execute"

const (
	progressExecuting = 40
	progressExecuted  = 70
)

// Executor is the transformation stage. It performs exactly one selector
// dispatch per invocation; retrying is the orchestrator's decision, not the
// executor's.
type Executor struct {
	selector  *provider.Selector
	outputDir string
	logger    *slog.Logger
}

// NewExecutor builds the execute stage.
func NewExecutor(selector *provider.Selector, outputDir string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{selector: selector, outputDir: outputDir, logger: logger}
}

// Name implements stage.Agent.
func (e *Executor) Name() string { return agentName }

// Process implements stage.Agent.
func (e *Executor) Process(ctx context.Context, state *task.State) error {
	// Generation starts from a prompt alone; every other operation needs an
	// input image on disk before any provider spends work on it.
	if state.Operation != task.OpGenerate {
		if strings.TrimSpace(state.InputRef) == "" {
			return services.Wrap(services.ErrNotFound, agentName, string(state.Operation),
				"input reference required", nil)
		}
		if _, err := os.Stat(state.InputRef); err != nil {
			return services.Wrap(services.ErrNotFound, agentName, string(state.Operation),
				fmt.Sprintf("input file not found: %s", state.InputRef), err)
		}
	}

	state.Status = task.StatusExecuting
	state.SetProgress(progressExecuting)

	result, err := e.selector.Dispatch(ctx, provider.Request{
		TaskID:    state.TaskID,
		Operation: state.Operation,
		Prompt:    state.UserRequest,
		InputRef:  state.InputRef,
		OutputDir: e.outputDir,
		Params:    analysis.SuggestedParams(state),
	})
	if err != nil {
		state.SetContext("execution", map[string]any{
			"attempts": result.Attempts,
		})
		return err
	}

	state.OutputRef = result.OutputRef
	state.SetContext("execution", map[string]any{
		"provider": result.Provider,
		"attempts": result.Attempts,
		"detail":   result.Detail,
	})
	state.SetProgress(progressExecuted)

	e.logger.Info(
		"execution complete",
		logging.String(logging.FieldProvider, result.Provider),
		logging.String(logging.FieldOperation, string(state.Operation)),
		logging.String("output_ref", result.OutputRef),
	)
	return nil
}

// HealthCheck implements stage.Agent. The stage is ready when every
// configured provider answers; failures are reported by name.
func (e *Executor) HealthCheck(ctx context.Context) stage.Health {
	failures := make([]string, 0, 2)
	for name, err := range e.selector.HealthCheck(ctx) {
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		return stage.Unhealthy(agentName, strings.Join(failures, "; "))
	}
	return stage.Healthy(agentName)
}
