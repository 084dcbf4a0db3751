package main

import (
	"log/slog"

	"github.com/minhduonq/deep-vision/internal/analysis"
	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/execute"
	"github.com/minhduonq/deep-vision/internal/history"
	"github.com/minhduonq/deep-vision/internal/orchestrator"
	"github.com/minhduonq/deep-vision/internal/provider"
	"github.com/minhduonq/deep-vision/internal/services/llm"
	"github.com/minhduonq/deep-vision/internal/task"
	"github.com/minhduonq/deep-vision/internal/validate"
)

// buildOrchestrator wires the three stage agents and the terminal-state
// recorder from configuration.
func buildOrchestrator(cfg *config.Config, store *task.Store, logger *slog.Logger) (orchestrator.Orchestrator, error) {
	selector, err := provider.NewSelector(cfg.Providers, provider.BuildCatalog(cfg.Providers), logger)
	if err != nil {
		return nil, err
	}

	analyzer := analysis.NewAnalyzer(buildClassifier(cfg), logger)
	executor := execute.NewExecutor(selector, cfg.Paths.OutputDir, logger)
	validator := validate.NewValidator(cfg.Validation, logger)
	recorder := history.NewRecorder(store, logger)

	return orchestrator.New(cfg.Workflow.Mode, analyzer, executor, validator,
		store, recorder, cfg.Validation.ReviewConfidence, logger)
}

func buildClassifier(cfg *config.Config) analysis.Classifier {
	if cfg.Analyzer.Mode == "llm" {
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		return analysis.NewLLMClassifier(client)
	}
	return analysis.NewRuleClassifier()
}
