// Package analysis classifies free-form user requests into image operations
// and records the result on the workflow state. Classification failures are
// recoverable: the analyzer falls back to the default operation at neutral
// confidence instead of failing the task.
package analysis

import (
	"context"

	"github.com/minhduonq/deep-vision/internal/task"
)

// NeutralConfidence is recorded when classification cannot decide: zero
// keyword matches or a failed LLM call both land here. Downstream review
// thresholds key off this value.
const NeutralConfidence = 0.5

// Classification is the outcome of mapping a request onto an operation.
type Classification struct {
	Operation       task.OperationKind
	Confidence      float64
	Reasoning       string
	SuggestedParams map[string]any
}

// Classifier decides which operation a user request calls for.
type Classifier interface {
	Classify(ctx context.Context, request string) (Classification, error)
	HealthCheck(ctx context.Context) error
}
