package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace_OK(t *testing.T) {
	result := CheckDiskSpace("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp volume, got: %s", result.Detail)
	}
}

func TestCheckProviderChains_Defaults(t *testing.T) {
	cfg := config.Default()
	result := CheckProviderChains(cfg.Providers)
	if !result.Passed {
		t.Fatalf("default chains should pass, got: %s", result.Detail)
	}
}

func TestCheckProviderChains_Problems(t *testing.T) {
	providers := config.Providers{
		Endpoints: map[string]config.ProviderEndpoint{},
		Chains: map[string][]string{
			"restore":       {"ghost"},
			"remove_region": {"stub"},
			"beautify":      {},
			"sharpen":       {"stub"},
		},
	}
	result := CheckProviderChains(providers)
	if result.Passed {
		t.Fatal("expected failure for broken chain config")
	}
	for _, want := range []string{`unconfigured provider "ghost"`, "empty chain for beautify", `unknown operation "sharpen"`, "no chain for generate"} {
		if !strings.Contains(result.Detail, want) {
			t.Fatalf("detail %q missing %q", result.Detail, want)
		}
	}
}

func TestCheckProviderEndpoint_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckProviderEndpoint(context.Background(), "qwen", config.ProviderEndpoint{BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckProviderEndpoint_MissingURL(t *testing.T) {
	result := CheckProviderEndpoint(context.Background(), "qwen", config.ProviderEndpoint{})
	if result.Passed {
		t.Fatal("expected failure for missing base url")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Analyzer LLM", config.LLM{})
	if result.Passed {
		t.Fatal("expected failure without an API key")
	}
}

func TestRunAllDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if !AllPassed(results) {
		for _, result := range results {
			if !result.Passed {
				t.Errorf("%s failed: %s", result.Name, result.Detail)
			}
		}
	}
}
