package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/minhduonq/deep-vision/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.OutputDir = filepath.Join(base, "outputs")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithWorkflowMode sets the orchestrator mode on the test config.
func WithWorkflowMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Mode = mode
	}
}

// WithMaxRetries sets the execute retry budget on the test config.
func WithMaxRetries(retries int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxRetries = retries
	}
}

// WithValidation overrides the quality-check thresholds on the test config.
func WithValidation(minBytes int64, minDimension int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Validation.MinOutputBytes = minBytes
		cfg.Validation.MinDimension = minDimension
	}
}
