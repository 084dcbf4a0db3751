package analysis

import (
	"context"
	"fmt"

	"github.com/minhduonq/deep-vision/internal/services/llm"
	"github.com/minhduonq/deep-vision/internal/task"
)

// LLMClassifier asks a hosted model which operation a request calls for.
type LLMClassifier struct {
	client *llm.Client
}

// NewLLMClassifier wraps an LLM client for request classification.
func NewLLMClassifier(client *llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

// Classify implements Classifier. Errors are returned to the caller; the
// analyzer converts them into a default-operation fallback.
func (c *LLMClassifier) Classify(ctx context.Context, request string) (Classification, error) {
	raw, err := c.client.ClassifyRequest(ctx, request)
	if err != nil {
		return Classification{}, err
	}
	operation, ok := task.ParseOperation(raw.Operation)
	if !ok || operation == task.OpUnknown {
		return Classification{}, fmt.Errorf("llm classify: unknown operation %q", raw.Operation)
	}
	params := raw.SuggestedParams
	if params == nil {
		params = map[string]any{}
	}
	return Classification{
		Operation:       operation,
		Confidence:      raw.Confidence,
		Reasoning:       raw.Reasoning,
		SuggestedParams: params,
	}, nil
}

// HealthCheck implements Classifier.
func (c *LLMClassifier) HealthCheck(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}
