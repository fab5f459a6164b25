package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index,omitempty"`
	Search     SearchConfig     `yaml:"search,omitempty"`
	Chat       ChatConfig       `yaml:"chat,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
	Tracing    TracingConfig    `yaml:"tracing,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "gemini" | "openai"
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint,omitempty"` // OpenAI-compatible base URL

	Dimensions  int `yaml:"dimensions,omitempty"` // 0 = model default
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency,omitempty"` // batches in flight while indexing
}

// GenerationConfig holds generative model configuration
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "gemini" | "openai"
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// IndexConfig holds the location of the persisted vector index
type IndexConfig struct {
	// Dir is the artifact directory holding vectors.db, contents.json and metadata.json
	Dir string `yaml:"dir,omitempty"`
	// Chunks is the default glob for chunk interchange files
	Chunks string `yaml:"chunks,omitempty"`
}

// SearchConfig holds search-specific configuration
type SearchConfig struct {
	DefaultTopK     int `yaml:"default_top_k,omitempty"`
	MaxTopK         int `yaml:"max_top_k,omitempty"`
	OverfetchFactor int `yaml:"overfetch_factor,omitempty"`
}

// ChatConfig holds chat orchestration configuration
type ChatConfig struct {
	HistoryWindow int    `yaml:"history_window,omitempty"` // turns passed to the model
	DefaultMode   string `yaml:"default_mode,omitempty"`
	ContextChars  int    `yaml:"context_chars,omitempty"` // per-source content limit
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string   `yaml:"addr,omitempty"`
	MetricsPath string   `yaml:"metrics_path,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"` // empty = any origin
}

// TracingConfig holds OpenTelemetry export configuration
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint,omitempty"` // OTLP gRPC collector
	SampleRate float64 `yaml:"sample_rate,omitempty"`
}

// Load loads configuration from the default config file
// Default location: ~/.lexrag/config/lexrag.yaml
func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromFile(configPath)
}

// DefaultPath returns the default configuration file location
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lexrag", "config", "lexrag.yaml"), nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	// .env is optional; values already in the environment win
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR} references, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'lexrag index' once to write a template",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

func (c *Config) expandEnv() {
	for _, s := range []*string{
		&c.Embedding.APIKey,
		&c.Embedding.Endpoint,
		&c.Generation.APIKey,
		&c.Generation.Endpoint,
		&c.Index.Dir,
		&c.Index.Chunks,
	} {
		if strings.Contains(*s, "$") {
			*s = os.ExpandEnv(*s)
		}
	}
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.Model = "text-embedding-3-small"
		default:
			c.Embedding.Model = "text-embedding-004"
		}
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.Concurrency == 0 {
		c.Embedding.Concurrency = 2
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.APIKey == "" && c.Generation.Provider == c.Embedding.Provider {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.Model == "" {
		switch c.Generation.Provider {
		case "openai":
			c.Generation.Model = "gpt-4o-mini"
		default:
			c.Generation.Model = "gemini-1.5-flash"
		}
	}

	if c.Index.Dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.Index.Dir = filepath.Join(homeDir, ".lexrag", "data", "vectorstore")
	}
	c.Index.Dir = expandPath(c.Index.Dir)
	if c.Index.Chunks == "" {
		c.Index.Chunks = "data/*.json"
	}
	c.Index.Chunks = expandPath(c.Index.Chunks)

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK == 0 {
		c.Search.MaxTopK = 20
	}
	if c.Search.OverfetchFactor == 0 {
		c.Search.OverfetchFactor = 2
	}

	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 10
	}
	if c.Chat.DefaultMode == "" {
		c.Chat.DefaultMode = "general"
	}
	if c.Chat.ContextChars == 0 {
		c.Chat.ContextChars = 500
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}

	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4317"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "gemini", "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("%s embedding provider requires api_key", c.Embedding.Provider)
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	switch c.Generation.Provider {
	case "gemini", "openai":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("%s generation provider requires api_key", c.Generation.Provider)
		}
	default:
		return fmt.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}

	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 100 {
		return fmt.Errorf("batch_size must be between 1 and 100, got: %d", c.Embedding.BatchSize)
	}
	if c.Embedding.Concurrency < 1 || c.Embedding.Concurrency > 16 {
		return fmt.Errorf("concurrency must be between 1 and 16, got: %d", c.Embedding.Concurrency)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("dimensions must not be negative, got: %d", c.Embedding.Dimensions)
	}

	if c.Search.DefaultTopK < 1 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("default_top_k must be between 1 and max_top_k (%d), got: %d", c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	if c.Search.OverfetchFactor < 1 {
		return fmt.Errorf("overfetch_factor must be at least 1, got: %d", c.Search.OverfetchFactor)
	}

	if c.Chat.HistoryWindow < 1 {
		return fmt.Errorf("history_window must be at least 1, got: %d", c.Chat.HistoryWindow)
	}
	if c.Chat.ContextChars < 1 {
		return fmt.Errorf("context_chars must be at least 1, got: %d", c.Chat.ContextChars)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got: %v", c.Tracing.SampleRate)
	}

	return nil
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# lexrag configuration
#
# Default location: $HOME/.lexrag/config/lexrag.yaml
# ${VAR} references are expanded from the environment (and ./.env).

embedding:
  # Provider: "gemini" or "openai"
  provider: gemini
  api_key: ${GOOGLE_API_KEY}
  model: text-embedding-004
  batch_size: 32
  concurrency: 2

generation:
  provider: gemini
  api_key: ${GOOGLE_API_KEY}
  model: gemini-1.5-flash

index:
  dir: ~/.lexrag/data/vectorstore
  chunks: data/*.json

search:
  default_top_k: 5
  max_top_k: 20
  overfetch_factor: 2

chat:
  history_window: 10
  default_mode: general

server:
  addr: ":8080"
  metrics_path: /metrics
  # cors_origins: ["https://example.org"]

tracing:
  enabled: false
  endpoint: localhost:4317
  sample_rate: 1.0
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
