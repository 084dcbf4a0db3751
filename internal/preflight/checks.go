package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/provider"
	"github.com/minhduonq/deep-vision/internal/services/llm"
	"github.com/minhduonq/deep-vision/internal/task"
)

// minFreeBytes is the floor below which the output volume is considered too
// full to accept new renders.
const minFreeBytes = 256 << 20

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckProviderEndpoint verifies that a configured inference backend answers
// its health probe.
func CheckProviderEndpoint(ctx context.Context, name string, endpoint config.ProviderEndpoint) Result {
	label := fmt.Sprintf("Provider %s", name)
	if strings.TrimSpace(endpoint.BaseURL) == "" {
		return Result{Name: label, Detail: "missing base url"}
	}

	backend := provider.NewHTTPProvider(name, endpoint)
	if err := backend.HealthCheck(ctx); err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: "Reachable"}
}

// CheckProviderChains validates the fallback-chain topology without touching
// the network: every chain key must be a known operation, every referenced
// provider must resolve to a configured endpoint or the stub, and every
// operation must have a chain.
func CheckProviderChains(cfg config.Providers) Result {
	const name = "Provider chains"

	var problems []string
	for key, chain := range cfg.Chains {
		if _, ok := task.ParseOperation(key); !ok {
			problems = append(problems, fmt.Sprintf("unknown operation %q", key))
			continue
		}
		if len(chain) == 0 {
			problems = append(problems, fmt.Sprintf("empty chain for %s", key))
			continue
		}
		for _, providerName := range chain {
			if providerName == provider.StubName {
				continue
			}
			if _, ok := cfg.Endpoints[providerName]; !ok {
				problems = append(problems, fmt.Sprintf("%s references unconfigured provider %q", key, providerName))
			}
		}
	}
	for _, op := range task.OperationPriority {
		if len(cfg.Chains[string(op)]) == 0 {
			problems = append(problems, fmt.Sprintf("no chain for %s", op))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return Result{Name: name, Detail: strings.Join(problems, "; ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d chains configured", len(cfg.Chains))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the volume backing path has headroom for new
// output files.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (only %d MiB free)", path, free>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
