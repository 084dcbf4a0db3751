// Package provider abstracts hosted image-transformation backends behind a
// single Invoke contract and selects between them with per-operation
// fallback chains.
package provider

import (
	"context"

	"github.com/minhduonq/deep-vision/internal/task"
)

// Request carries everything a backend needs to perform one transformation
// attempt. InputRef is empty for generation requests.
type Request struct {
	TaskID    string
	Operation task.OperationKind
	Prompt    string
	InputRef  string
	OutputDir string
	Params    map[string]any
}

// Result reports the outcome of a single provider invocation. Success is
// false when the backend answered but declined or produced nothing usable;
// transport and decoding failures surface as errors instead.
type Result struct {
	Success   bool
	OutputRef string
	Detail    string
	Provider  string
	Attempts  []string
}

// Provider is one image-transformation backend.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, req Request) (Result, error)
	HealthCheck(ctx context.Context) error
}
