package config

const (
	defaultUploadDir  = "~/.local/share/deep-vision/uploads"
	defaultOutputDir  = "~/.local/share/deep-vision/outputs"
	defaultDataDir    = "~/.local/share/deep-vision/data"
	defaultLogDir     = "~/.local/share/deep-vision/logs"
	defaultAPIBind    = "127.0.0.1:8461"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultLLMBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel   = "openai/gpt-4o-mini"
	defaultLLMReferer = "https://github.com/minhduonq/deep-vision"
	defaultLLMTitle   = "Deep Vision Task Analyzer"
	defaultLLMTimeout = 30

	defaultAnalyzerMode = "rules"
	defaultWorkflowMode = "conditional"

	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5
	defaultWorkerCount        = 4
	defaultMaxRetries         = 3

	defaultMinOutputBytes   = 1000
	defaultMinDimension     = 32
	defaultReviewConfidence = 0.5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Analyzer: Analyzer{
			Mode: defaultAnalyzerMode,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Providers: Providers{
			Endpoints: map[string]ProviderEndpoint{
				"stub": {},
			},
			Chains: map[string][]string{
				"restore":       {"stub"},
				"remove_region": {"stub"},
				"beautify":      {"stub"},
				"generate":      {"stub"},
			},
		},
		Workflow: Workflow{
			Mode:               defaultWorkflowMode,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			WorkerCount:        defaultWorkerCount,
			MaxRetries:         defaultMaxRetries,
		},
		Validation: Validation{
			MinOutputBytes:   defaultMinOutputBytes,
			MinDimension:     defaultMinDimension,
			ReviewConfidence: defaultReviewConfidence,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
