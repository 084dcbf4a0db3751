package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/services"
	"github.com/minhduonq/deep-vision/internal/task"
)

// Selector dispatches a request to the first healthy backend in the
// operation's configured chain. Each provider in a chain is invoked at most
// once per request; when every provider fails, the last failure wins.
type Selector struct {
	chains map[task.OperationKind][]Provider
	logger *slog.Logger
}

// NewSelector wires the configured chains against a catalog of constructed
// providers. Chain entries that name an unknown provider are rejected here
// rather than at dispatch time.
func NewSelector(cfg config.Providers, catalog map[string]Provider, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	chains := make(map[task.OperationKind][]Provider, len(cfg.Chains))
	for operation, names := range cfg.Chains {
		kind, ok := task.ParseOperation(operation)
		if !ok {
			return nil, fmt.Errorf("provider selector: unknown operation %q in chains", operation)
		}
		ordered := make([]Provider, 0, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			backend, ok := catalog[name]
			if !ok {
				return nil, fmt.Errorf("provider selector: chain for %q references unknown provider %q", operation, name)
			}
			ordered = append(ordered, backend)
		}
		if len(ordered) == 0 {
			return nil, fmt.Errorf("provider selector: empty chain for operation %q", operation)
		}
		chains[kind] = ordered
	}
	return &Selector{chains: chains, logger: logger}, nil
}

// BuildCatalog constructs one provider per configured endpoint. The "stub"
// name is reserved for the local deterministic backend.
func BuildCatalog(cfg config.Providers) map[string]Provider {
	catalog := make(map[string]Provider, len(cfg.Endpoints)+1)
	catalog[StubName] = NewStub()
	for name, endpoint := range cfg.Endpoints {
		name = strings.TrimSpace(name)
		if name == "" || name == StubName {
			continue
		}
		catalog[name] = NewHTTPProvider(name, endpoint)
	}
	return catalog
}

// Chain returns the configured providers for an operation.
func (s *Selector) Chain(operation task.OperationKind) []Provider {
	return s.chains[operation]
}

// Dispatch walks the operation's chain until a provider succeeds. An
// unsuccessful Result and a returned error are treated the same way: move on
// to the next provider. The error returned after exhaustion carries the last
// provider's failure.
func (s *Selector) Dispatch(ctx context.Context, req Request) (Result, error) {
	chain, ok := s.chains[req.Operation]
	if !ok || len(chain) == 0 {
		return Result{}, services.Wrap(
			services.ErrConfiguration,
			"execute",
			string(req.Operation),
			"no provider chain configured",
			nil,
		)
	}

	attempts := make([]string, 0, len(chain))
	var lastErr error
	lastDetail := ""

	for _, backend := range chain {
		attempts = append(attempts, backend.Name())
		result, err := backend.Invoke(ctx, req)
		if err == nil && result.Success {
			result.Provider = backend.Name()
			result.Attempts = attempts
			s.logger.Info(
				"provider succeeded",
				logging.String(logging.FieldProvider, backend.Name()),
				logging.String(logging.FieldOperation, string(req.Operation)),
				logging.Int("attempt", len(attempts)),
			)
			return result, nil
		}
		if err != nil {
			lastErr = err
			lastDetail = err.Error()
		} else {
			lastErr = nil
			lastDetail = result.Detail
			if lastDetail == "" {
				lastDetail = "provider reported failure without detail"
			}
		}
		s.logger.Warn(
			"provider failed, trying next in chain",
			logging.String(logging.FieldProvider, backend.Name()),
			logging.String(logging.FieldOperation, string(req.Operation)),
			logging.String("detail", lastDetail),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Attempts: attempts}, services.Wrap(
		services.ErrProvider,
		"execute",
		string(req.Operation),
		fmt.Sprintf("all %d provider(s) failed: %s", len(attempts), lastDetail),
		lastErr,
	)
}

// HealthCheck reports per-provider readiness across every configured chain.
func (s *Selector) HealthCheck(ctx context.Context) map[string]error {
	seen := make(map[string]error)
	for _, chain := range s.chains {
		for _, backend := range chain {
			if _, ok := seen[backend.Name()]; ok {
				continue
			}
			seen[backend.Name()] = backend.HealthCheck(ctx)
		}
	}
	return seen
}
