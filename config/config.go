// Package config provides configuration management for memloader.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config is the global configuration for memloader.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// LLM is the extraction provider configuration.
	LLM LLMConfig `mapstructure:"llm" validate:"required"`

	// Mem0 is the mem0 platform configuration.
	Mem0 Mem0Config `mapstructure:"mem0"`

	// Processing is the chunking and pipeline configuration.
	Processing ProcessingConfig `mapstructure:"processing" validate:"required"`

	// RateLimit throttles and retries provider requests.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Storage selects and configures the upload target.
	Storage StorageConfig `mapstructure:"storage"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// LLMConfig holds extraction provider settings.
type LLMConfig struct {
	// Provider is the extraction backend (ollama, openai).
	Provider string `mapstructure:"provider" validate:"oneof=ollama openai"`

	// OllamaModel is the Ollama model name.
	OllamaModel string `mapstructure:"ollama_model"`

	// OllamaBaseURL is the Ollama server address.
	OllamaBaseURL string `mapstructure:"ollama_base_url" validate:"required"`

	// OllamaTimeout bounds a single generate request.
	OllamaTimeout time.Duration `mapstructure:"ollama_timeout"`

	// OpenAIModel is the OpenAI chat model name.
	OpenAIModel string `mapstructure:"openai_model"`

	// OpenAIBaseURL is the OpenAI API root.
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// OpenAIAPIKey authenticates OpenAI requests.
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
}

// Mem0Config holds mem0 platform settings.
type Mem0Config struct {
	// APIKey authenticates platform requests.
	APIKey string `mapstructure:"api_key"`

	// BaseURL is the platform API root.
	BaseURL string `mapstructure:"base_url"`

	// UserID scopes uploaded memories.
	UserID string `mapstructure:"user_id"`
}

// ProcessingConfig holds chunking and pipeline settings.
type ProcessingConfig struct {
	// ChunkSize is the extraction chunk target in tokens.
	ChunkSize int `mapstructure:"chunk_size" validate:"min=1"`

	// ChunkOverlap is the overlap between adjacent chunks in tokens.
	ChunkOverlap int `mapstructure:"chunk_overlap" validate:"min=0"`

	// BatchSize is the number of memories per upload batch.
	BatchSize int `mapstructure:"batch_size" validate:"min=1"`

	// ConfidenceThreshold is the minimum confidence a memory needs to
	// survive filtering.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`

	// Workers is the number of concurrent extraction workers.
	Workers int `mapstructure:"workers" validate:"min=1"`

	// Categories is the set of memory categories accepted at upload.
	Categories []string `mapstructure:"categories" validate:"min=1"`
}

// RateLimitConfig holds provider throttling and retry settings.
type RateLimitConfig struct {
	// RequestsPerMinute throttles provider requests. Zero disables
	// throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"min=0"`

	// RetryAttempts is the total number of tries per request.
	RetryAttempts int `mapstructure:"retry_attempts" validate:"min=0"`

	// RetryDelay is the initial backoff between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// MaxRetryDelay caps the backoff growth.
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
}

// StorageConfig holds upload target settings.
type StorageConfig struct {
	// Type is the storage backend (local, mem0).
	Type string `mapstructure:"type" validate:"oneof=local mem0"`

	// Local is the local badger store configuration.
	Local LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig holds local store settings.
type LocalStorageConfig struct {
	// Path is the database directory path.
	Path string `mapstructure:"path"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	model := c.LLM.OllamaModel
	if c.LLM.Provider == ProviderOpenAI {
		model = c.LLM.OpenAIModel
	}
	return fmt.Sprintf("Config{App: %s, Env: %s, Provider: %s, Model: %s, Storage: %s}",
		c.App.Name, c.App.Environment, c.LLM.Provider, model, c.Storage.Type)
}

// ExtractionModel returns the configured model for the active provider.
func (c *Config) ExtractionModel() string {
	if strings.EqualFold(c.LLM.Provider, ProviderOpenAI) {
		return c.LLM.OpenAIModel
	}
	return c.LLM.OllamaModel
}
