package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/minhduonq/deep-vision/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvider, "execute", "invoke", "primary failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"execute", "invoke", "primary failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDetailsExtraction(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "execute", "check input", "input file missing", nil)
	details := services.Details(err)
	if details.Kind != services.ErrorKindNotFound {
		t.Fatalf("expected not_found kind, got %s", details.Kind)
	}
	if details.Stage != "execute" {
		t.Fatalf("expected stage execute, got %q", details.Stage)
	}
	if details.Message != "input file missing" {
		t.Fatalf("unexpected message %q", details.Message)
	}
}

func TestDetailsPlainError(t *testing.T) {
	base := errors.New("plain failure")
	details := services.Details(base)
	if details.Kind != services.ErrorKindTransient {
		t.Fatalf("expected transient kind, got %s", details.Kind)
	}
	if details.Message != "plain failure" {
		t.Fatalf("unexpected message %q", details.Message)
	}
}

func TestIsFatal(t *testing.T) {
	analysisErr := services.Wrap(services.ErrAnalysis, "analyze", "classify", "llm unavailable", nil)
	if services.IsFatal(analysisErr) {
		t.Fatal("analysis failures must be recoverable")
	}
	providerErr := services.Wrap(services.ErrProvider, "execute", "invoke", "chain exhausted", nil)
	if !services.IsFatal(providerErr) {
		t.Fatal("provider failures must be fatal")
	}
	if services.IsFatal(nil) {
		t.Fatal("nil error is not fatal")
	}
}
