package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Analyzer selects the request analysis implementation.
type Analyzer struct {
	// Mode is "rules" for the offline keyword classifier or "llm" for the
	// chat-completion backed classifier.
	Mode string `toml:"mode"`
}

// LLM contains shared LLM connection settings used by the request analyzer.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ProviderEndpoint describes one hosted inference backend.
type ProviderEndpoint struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Providers contains the endpoint catalog and per-operation fallback chains.
type Providers struct {
	// Endpoints maps a provider name to its connection settings. A provider
	// named "stub" is always available and writes deterministic local output
	// for development use.
	Endpoints map[string]ProviderEndpoint `toml:"endpoints"`
	// Chains maps an operation kind (restore, remove_region, beautify,
	// generate) to an ordered provider list: first entry is primary, the
	// rest are fallbacks.
	Chains map[string][]string `toml:"chains"`
}

// Workflow contains daemon timing, retry, and concurrency settings.
type Workflow struct {
	// Mode is "sequential" or "conditional" (adds review flagging and
	// bounded execute retries).
	Mode               string `toml:"mode"`
	QueuePollInterval  int    `toml:"queue_poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	WorkerCount        int    `toml:"worker_count"`
	MaxRetries         int    `toml:"max_retries"`
}

// Validation contains thresholds for output quality checks.
type Validation struct {
	MinOutputBytes   int64   `toml:"min_output_bytes"`
	MinDimension     int     `toml:"min_dimension"`
	ReviewConfidence float64 `toml:"review_confidence"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the deep-vision daemon.
//
// Configuration sections by subsystem:
//   - Paths: artifact directories and API bind address
//   - Analyzer: request analysis mode (rules vs llm)
//   - LLM: chat-completion connection settings for the llm analyzer
//   - Providers: hosted inference endpoints and fallback chains
//   - Workflow: orchestrator mode, polling intervals, retries, workers
//   - Validation: output quality thresholds
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Analyzer   Analyzer   `toml:"analyzer"`
	LLM        LLM        `toml:"llm"`
	Providers  Providers  `toml:"providers"`
	Workflow   Workflow   `toml:"workflow"`
	Validation Validation `toml:"validation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deep-vision/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path and the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("deep-vision.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.OutputDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the task registry database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "tasks.db")
}

// ExpandPath resolves a leading ~ and relative segments in a filesystem path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
