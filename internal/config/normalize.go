package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalyzer()
	c.normalizeLLM()
	c.normalizeProviders()
	c.normalizeWorkflow()
	c.normalizeValidation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeAnalyzer() {
	c.Analyzer.Mode = strings.ToLower(strings.TrimSpace(c.Analyzer.Mode))
	if c.Analyzer.Mode == "" {
		c.Analyzer.Mode = defaultAnalyzerMode
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeProviders() {
	if c.Providers.Endpoints == nil {
		c.Providers.Endpoints = map[string]ProviderEndpoint{}
	}
	if c.Providers.Chains == nil {
		c.Providers.Chains = map[string][]string{}
	}
	normalized := make(map[string][]string, len(c.Providers.Chains))
	for op, chain := range c.Providers.Chains {
		key := strings.ToLower(strings.TrimSpace(op))
		cleaned := make([]string, 0, len(chain))
		for _, name := range chain {
			name = strings.TrimSpace(name)
			if name != "" {
				cleaned = append(cleaned, name)
			}
		}
		if key != "" && len(cleaned) > 0 {
			normalized[key] = cleaned
		}
	}
	c.Providers.Chains = normalized
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.Mode = strings.ToLower(strings.TrimSpace(c.Workflow.Mode))
	if c.Workflow.Mode == "" {
		c.Workflow.Mode = defaultWorkflowMode
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.WorkerCount <= 0 {
		c.Workflow.WorkerCount = defaultWorkerCount
	}
	if c.Workflow.MaxRetries < 0 {
		c.Workflow.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeValidation() {
	if c.Validation.MinOutputBytes <= 0 {
		c.Validation.MinOutputBytes = defaultMinOutputBytes
	}
	if c.Validation.MinDimension <= 0 {
		c.Validation.MinDimension = defaultMinDimension
	}
	if c.Validation.ReviewConfidence <= 0 {
		c.Validation.ReviewConfidence = defaultReviewConfidence
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
