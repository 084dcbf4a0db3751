package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/minhduonq/deep-vision/internal/services"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("stage started", String(FieldStage, "analyze"), Int("progress", 10))

	line := buf.String()
	for _, fragment := range []string{"INFO", "stage started", "stage=analyze", "progress=10"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in output %q", fragment, line)
		}
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := NewComponentLogger(slog.New(newConsoleHandler(&buf, levelVar, false)), "engine")

	logger.Info("worker started")

	line := buf.String()
	if !strings.Contains(line, "engine: worker started") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as a field in %q", line)
	}
}

func TestWithContextAddsTaskFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, levelVar, false))

	ctx := services.WithTaskID(context.Background(), "task-123")
	ctx = services.WithStage(ctx, "execute")

	WithContext(ctx, base).Info("processing")

	line := buf.String()
	if !strings.Contains(line, "task_id=task-123") || !strings.Contains(line, "stage=execute") {
		t.Fatalf("expected context fields in %q", line)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("mystery"); got != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
}
