package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownOperations = map[string]struct{}{
	"restore":       {},
	"remove_region": {},
	"beautify":      {},
	"generate":      {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalyzer(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAnalyzer() error {
	switch c.Analyzer.Mode {
	case "rules":
		return nil
	case "llm":
		if c.LLM.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/deep-vision/config.toml"
			}
			return fmt.Errorf("llm.api_key is required when analyzer.mode is \"llm\"; edit %s (create with 'deepvision config init')", defaultPath)
		}
		return nil
	default:
		return fmt.Errorf("analyzer.mode must be \"rules\" or \"llm\", got %q", c.Analyzer.Mode)
	}
}

func (c *Config) validateProviders() error {
	if len(c.Providers.Chains) == 0 {
		return errors.New("providers.chains must define at least one operation chain")
	}
	for op, chain := range c.Providers.Chains {
		if _, ok := knownOperations[op]; !ok {
			return fmt.Errorf("providers.chains has unknown operation %q", op)
		}
		for _, name := range chain {
			if name == "stub" {
				continue
			}
			endpoint, ok := c.Providers.Endpoints[name]
			if !ok {
				return fmt.Errorf("providers.chains.%s references undefined endpoint %q", op, name)
			}
			if strings.TrimSpace(endpoint.BaseURL) == "" {
				return fmt.Errorf("providers.endpoints.%s.base_url must be set", name)
			}
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.Mode {
	case "sequential", "conditional":
	default:
		return fmt.Errorf("workflow.mode must be \"sequential\" or \"conditional\", got %q", c.Workflow.Mode)
	}
	if c.Workflow.WorkerCount < 1 {
		return errors.New("workflow.worker_count must be at least 1")
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.ReviewConfidence < 0 || c.Validation.ReviewConfidence > 1 {
		return errors.New("validation.review_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
