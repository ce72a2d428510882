package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// ErrMissingAPIKey is returned when an OpenAI client is created without a key.
var ErrMissingAPIKey = errors.New("openai api key is required")

// systemPrompt primes the model for extraction work.
const systemPrompt = "You are an expert at extracting personal memories and preferences from conversations. Always return valid JSON."

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Model is the chat model name.
	Model string

	// Timeout bounds a single request.
	Timeout time.Duration

	// RequestsPerMinute throttles requests. Zero disables throttling.
	RequestsPerMinute int

	// ConfidenceThreshold pre-filters records at the extraction boundary.
	ConfidenceThreshold float64

	// Retry bounds request retries.
	Retry RetryPolicy
}

// OpenAIClient extracts memories through the OpenAI chat completions API.
type OpenAIClient struct {
	cfg     OpenAIConfig
	http    *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// NewOpenAIClient creates a client, failing fast on a missing API key.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}

	return &OpenAIClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     logger.Global().With("component", "openai", "model", cfg.Model),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract implements Extractor.
func (c *OpenAIClient) Extract(ctx context.Context, chunk, title string) ([]memory.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := templatePrompt(chunk, title)
	response, err := withRetry(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	return parseObjectResponse(response, chunk, c.cfg.ConfidenceThreshold)
}

// complete performs one chat completion call and returns the reply text.
func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: genTemperature,
		MaxTokens:   genMaxTokens,
		TopP:        genTopP,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return chat.Choices[0].Message.Content, nil
}
