package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

const agentName = "analyze"

const (
	progressAnalyzing = 10
	progressAnalyzed  = 20
)

// Analyzer is the first pipeline stage: it decides which operation the task
// needs and records the classification metadata on the state. It never fails
// the task; a classifier failure degrades to the default operation.
type Analyzer struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewAnalyzer builds the analysis stage around the given classifier.
func NewAnalyzer(classifier Classifier, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{classifier: classifier, logger: logger}
}

// Name implements stage.Agent.
func (a *Analyzer) Name() string { return agentName }

// Process implements stage.Agent.
func (a *Analyzer) Process(ctx context.Context, state *task.State) error {
	state.Status = task.StatusAnalyzing
	state.SetProgress(progressAnalyzing)

	result, err := a.classifier.Classify(ctx, state.UserRequest)
	if err != nil {
		// Classification failure is recoverable: fall back to the default
		// operation, record what happened, and keep the task moving.
		a.logger.Warn(
			"classification failed, using default operation",
			logging.String(logging.FieldOperation, string(task.DefaultOperation)),
			logging.Error(err),
		)
		result = Classification{
			Operation:       task.DefaultOperation,
			Confidence:      NeutralConfidence,
			Reasoning:       fmt.Sprintf("classification failed, using default: %v", err),
			SuggestedParams: map[string]any{},
		}
		state.AppendError(agentName, err.Error(), "analysis")
	}

	// An explicit operation submitted with the task wins over classification.
	if state.Operation == task.OpUnknown || state.Operation == "" {
		state.Operation = result.Operation
	}

	state.SetContext("analysis", map[string]any{
		"confidence":       result.Confidence,
		"reasoning":        result.Reasoning,
		"suggested_params": result.SuggestedParams,
	})
	state.SetProgress(progressAnalyzed)

	a.logger.Info(
		"analysis complete",
		logging.String(logging.FieldOperation, string(state.Operation)),
		logging.Float64("confidence", result.Confidence),
	)
	return nil
}

// HealthCheck implements stage.Agent.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	if err := a.classifier.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(agentName, err.Error())
	}
	return stage.Healthy(agentName)
}

// Confidence reads the recorded analysis confidence from a state, defaulting
// to neutral when analysis has not run.
func Confidence(state *task.State) float64 {
	raw, ok := state.ContextValue("analysis")
	if !ok {
		return NeutralConfidence
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		return NeutralConfidence
	}
	switch value := meta["confidence"].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	default:
		return NeutralConfidence
	}
}

// SuggestedParams reads the recorded provider parameters from a state.
func SuggestedParams(state *task.State) map[string]any {
	raw, ok := state.ContextValue("analysis")
	if !ok {
		return nil
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	params, _ := meta["suggested_params"].(map[string]any)
	return params
}
