package preflight

import (
	"context"
	"sort"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/provider"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks are only run when the corresponding subsystem is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	results = append(results, CheckDiskSpace("Output disk space", cfg.Paths.OutputDir))

	results = append(results, CheckProviderChains(cfg.Providers))

	if cfg.Analyzer.Mode == "llm" {
		results = append(results, CheckLLM(ctx, "Analyzer LLM", cfg.LLM))
	}

	names := make([]string, 0, len(cfg.Providers.Endpoints))
	for name := range cfg.Providers.Endpoints {
		if name == provider.StubName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		results = append(results, CheckProviderEndpoint(ctx, name, cfg.Providers.Endpoints[name]))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
