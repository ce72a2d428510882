package config

import (
	"time"

	"github.com/memloader/memloader/pkg/memory"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "memloader",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		LLM: LLMConfig{
			Provider:      ProviderOllama,
			OllamaModel:   "nuextract",
			OllamaBaseURL: "http://localhost:11434",
			OllamaTimeout: 120 * time.Second,
			OpenAIModel:   "gpt-4o-mini",
			OpenAIBaseURL: "https://api.openai.com/v1",
		},
		Mem0: Mem0Config{
			BaseURL: "https://api.mem0.ai",
			UserID:  "chatgpt_import",
		},
		Processing: ProcessingConfig{
			ChunkSize:           1500,
			ChunkOverlap:        200,
			BatchSize:           100,
			ConfidenceThreshold: 0.7,
			Workers:             4,
			Categories:          memory.DefaultCategories(),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			RetryAttempts:     3,
			RetryDelay:        1 * time.Second,
			MaxRetryDelay:     10 * time.Second,
		},
		Storage: StorageConfig{
			Type: "local",
			Local: LocalStorageConfig{
				Path:       "./data/memories",
				SyncWrites: false,
			},
		},
	}
}
