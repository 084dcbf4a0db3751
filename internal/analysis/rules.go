package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/minhduonq/deep-vision/internal/task"
)

// operationKeywords maps each operation to the request vocabulary that
// suggests it. Matching is case-insensitive substring containment.
var operationKeywords = map[task.OperationKind][]string{
	task.OpRestore: {
		"blur", "blurry", "sharp", "sharpen", "focus", "clarity",
		"noise", "denoise", "grain", "restore", "old photo", "damaged",
		"low resolution", "upscale", "enhance quality",
	},
	task.OpRemoveRegion: {
		"remove", "delete", "erase", "eliminate", "clean up",
		"watermark", "background", "object", "unwanted", "text overlay",
		"inpaint",
	},
	task.OpBeautify: {
		"beauty", "beautify", "skin", "smooth", "portrait", "face",
		"retouch", "makeup", "wrinkle", "blemish",
	},
	task.OpGenerate: {
		"generate", "create", "draw", "make an image", "make a picture",
		"render", "imagine", "from scratch", "text to image",
	},
}

const (
	ruleBaseConfidence = 0.6
	ruleMatchStep      = 0.1
	ruleMaxConfidence  = 0.95
)

// RuleClassifier scores keyword matches per operation. Ties break in the
// fixed operation priority order so classification stays deterministic.
type RuleClassifier struct{}

// NewRuleClassifier constructs the keyword-based classifier.
func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

// Classify implements Classifier. It never returns an error: an
// unclassifiable request yields the default operation at neutral confidence.
func (c *RuleClassifier) Classify(_ context.Context, request string) (Classification, error) {
	normalized := strings.ToLower(request)

	bestOp := task.OperationKind("")
	bestMatches := 0
	var bestHits []string
	for _, op := range task.OperationPriority {
		matches, hits := countMatches(normalized, operationKeywords[op])
		if matches > bestMatches {
			bestOp = op
			bestMatches = matches
			bestHits = hits
		}
	}

	if bestMatches == 0 {
		return Classification{
			Operation:       task.DefaultOperation,
			Confidence:      NeutralConfidence,
			Reasoning:       "no operation keywords matched, using default",
			SuggestedParams: map[string]any{},
		}, nil
	}

	confidence := ruleBaseConfidence + ruleMatchStep*float64(bestMatches)
	if confidence > ruleMaxConfidence {
		confidence = ruleMaxConfidence
	}
	return Classification{
		Operation:       bestOp,
		Confidence:      confidence,
		Reasoning:       fmt.Sprintf("matched keywords: %s", strings.Join(bestHits, ", ")),
		SuggestedParams: map[string]any{},
	}, nil
}

// HealthCheck implements Classifier; the rule table needs no runtime deps.
func (c *RuleClassifier) HealthCheck(context.Context) error { return nil }

func countMatches(request string, keywords []string) (int, []string) {
	count := 0
	hits := make([]string, 0, 4)
	for _, keyword := range keywords {
		if strings.Contains(request, keyword) {
			count++
			hits = append(hits, keyword)
		}
	}
	return count, hits
}
