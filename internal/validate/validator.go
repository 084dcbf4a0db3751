// Package validate runs the quality-check battery on produced output and
// decides the terminal status of a task.
package validate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/stage"
	"github.com/minhduonq/deep-vision/internal/task"
)

const agentName = "validate"

const (
	progressValidating = 80
	progressCompleted  = 100
)

// Check names recorded in the quality_checks context entry.
const (
	CheckOutputExists = "output_exists"
	CheckFileSize     = "file_size"
	CheckImageFormat  = "image_format"
	CheckDimensions   = "dimensions"
	CheckComparison   = "comparison"
)

// CheckResult is one quality check outcome.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Validator is the final pipeline stage. A missing output short-circuits the
// battery; otherwise every applicable check runs so a failure report names
// all problems at once, not just the first.
type Validator struct {
	minBytes     int64
	minDimension int
	logger       *slog.Logger
}

// NewValidator builds the validation stage from the configured thresholds.
func NewValidator(cfg config.Validation, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{
		minBytes:     cfg.MinOutputBytes,
		minDimension: cfg.MinDimension,
		logger:       logger,
	}
}

// Name implements stage.Agent.
func (v *Validator) Name() string { return agentName }

// Process implements stage.Agent. It records every check outcome in the
// state context and sets the terminal status itself rather than returning an
// error, so partial results survive alongside the failure.
func (v *Validator) Process(_ context.Context, state *task.State) error {
	state.Status = task.StatusValidating
	state.SetProgress(progressValidating)

	checks := v.runChecks(state)

	results := make(map[string]any, len(checks))
	failed := make([]string, 0, len(checks))
	for name, check := range checks {
		results[name] = map[string]any{"passed": check.Passed, "message": check.Message}
		if !check.Passed {
			failed = append(failed, name)
		}
	}
	state.SetContext("quality_checks", results)

	if len(failed) > 0 {
		message := fmt.Sprintf("quality checks failed: %s", strings.Join(failed, ", "))
		state.MarkFailed(agentName, message, "validation")
		v.logger.Warn(
			"validation failed",
			logging.String("failed_checks", strings.Join(failed, ", ")),
		)
		return nil
	}

	state.MarkCompleted()
	state.SetProgress(progressCompleted)
	v.logger.Info(
		"validation passed",
		logging.Int("checks", len(checks)),
		logging.String("output_ref", state.OutputRef),
	)
	return nil
}

// HealthCheck implements stage.Agent; validation has no external deps.
func (v *Validator) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(agentName)
}

func (v *Validator) runChecks(state *task.State) map[string]CheckResult {
	checks := make(map[string]CheckResult, 5)

	exists := v.checkOutputExists(state.OutputRef)
	checks[CheckOutputExists] = exists
	if !exists.Passed {
		return checks
	}

	checks[CheckFileSize] = v.checkFileSize(state.OutputRef)

	format, img := v.checkImageFormat(state.OutputRef)
	checks[CheckImageFormat] = format
	if format.Passed {
		checks[CheckDimensions] = v.checkDimensions(img)
		if state.InputRef != "" {
			checks[CheckComparison] = v.checkComparison(state.InputRef, state.OutputRef, img)
		}
	}
	return checks
}

func (v *Validator) checkOutputExists(outputRef string) CheckResult {
	if strings.TrimSpace(outputRef) == "" {
		return CheckResult{Passed: false, Message: "no output reference recorded"}
	}
	info, err := os.Stat(outputRef)
	if err != nil {
		return CheckResult{Passed: false, Message: fmt.Sprintf("output file not found: %s", outputRef)}
	}
	if info.IsDir() {
		return CheckResult{Passed: false, Message: fmt.Sprintf("output reference is a directory: %s", outputRef)}
	}
	return CheckResult{Passed: true, Message: "output file exists"}
}

func (v *Validator) checkFileSize(outputRef string) CheckResult {
	info, err := os.Stat(outputRef)
	if err != nil {
		return CheckResult{Passed: false, Message: fmt.Sprintf("stat output: %v", err)}
	}
	if info.Size() < v.minBytes {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("file size %d bytes below minimum %d", info.Size(), v.minBytes),
		}
	}
	return CheckResult{Passed: true, Message: fmt.Sprintf("file size %d bytes", info.Size())}
}

func (v *Validator) checkImageFormat(outputRef string) (CheckResult, image.Image) {
	file, err := os.Open(outputRef)
	if err != nil {
		return CheckResult{Passed: false, Message: fmt.Sprintf("open output: %v", err)}, nil
	}
	defer file.Close()
	img, format, err := image.Decode(file)
	if err != nil {
		return CheckResult{Passed: false, Message: fmt.Sprintf("invalid image: %v", err)}, nil
	}
	return CheckResult{Passed: true, Message: fmt.Sprintf("valid %s image", format)}, img
}

func (v *Validator) checkDimensions(img image.Image) CheckResult {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < v.minDimension || height < v.minDimension {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("image %dx%d below minimum dimension %d", width, height, v.minDimension),
		}
	}
	return CheckResult{Passed: true, Message: fmt.Sprintf("image %dx%d", width, height)}
}

// checkComparison verifies the output was actually transformed: same canvas
// as the input but different bytes. Comparison problems (unreadable input,
// undecodable input) pass rather than fail, matching the tolerant handling
// the pipeline has always had for inputs it no longer controls.
func (v *Validator) checkComparison(inputRef, outputRef string, output image.Image) CheckResult {
	inputData, err := os.ReadFile(inputRef)
	if err != nil {
		return CheckResult{Passed: true, Message: fmt.Sprintf("could not compare: %v", err)}
	}
	outputData, err := os.ReadFile(outputRef)
	if err != nil {
		return CheckResult{Passed: true, Message: fmt.Sprintf("could not compare: %v", err)}
	}
	input, _, err := image.Decode(bytes.NewReader(inputData))
	if err != nil {
		return CheckResult{Passed: true, Message: fmt.Sprintf("could not compare: %v", err)}
	}

	sameSize := input.Bounds().Dx() == output.Bounds().Dx() &&
		input.Bounds().Dy() == output.Bounds().Dy()
	different := !bytes.Equal(inputData, outputData)

	if !sameSize {
		return CheckResult{
			Passed: false,
			Message: fmt.Sprintf("dimensions changed: input %dx%d, output %dx%d",
				input.Bounds().Dx(), input.Bounds().Dy(),
				output.Bounds().Dx(), output.Bounds().Dy()),
		}
	}
	if !different {
		return CheckResult{Passed: false, Message: "output bytes identical to input"}
	}
	return CheckResult{Passed: true, Message: "output was transformed"}
}
