package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// ModelNuExtract is the template-following extraction model; other Ollama
// models get the general-purpose array prompt.
const ModelNuExtract = "nuextract"

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	// BaseURL is the Ollama server address, e.g. http://localhost:11434.
	BaseURL string

	// Model is the model name, pulled automatically if missing.
	Model string

	// Timeout bounds a single generate request.
	Timeout time.Duration

	// RequestsPerMinute throttles generate requests. Zero disables
	// throttling.
	RequestsPerMinute int

	// ConfidenceThreshold pre-filters records at the extraction boundary.
	ConfidenceThreshold float64

	// Retry bounds request retries.
	Retry RetryPolicy
}

// OllamaClient extracts memories through a local Ollama server.
type OllamaClient struct {
	cfg     OllamaConfig
	http    *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// NewOllamaClient creates a client. It does not touch the network; call
// EnsureModel before extracting.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}

	return &OllamaClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     logger.Global().With("component", "ollama", "model", cfg.Model),
	}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// EnsureModel verifies the configured model is available on the server and
// pulls it when missing.
func (c *OllamaClient) EnsureModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("check model availability: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == c.cfg.Model {
			c.log.Info("model is available")
			return nil
		}
	}

	c.log.Info("model not found, pulling")
	return c.pullModel(ctx)
}

// pullModel asks the server to fetch the model. Pulls can take minutes, so
// the per-request timeout is not applied here.
func (c *OllamaClient) pullModel(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{"name": c.cfg.Model, "stream": false})
	if err != nil {
		return err
	}

	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(pullCtx, http.MethodPost, c.cfg.BaseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("pull model %s: %w", c.cfg.Model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Info("model pulled")
	return nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Extract implements Extractor.
func (c *OllamaClient) Extract(ctx context.Context, chunk, title string) ([]memory.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	useTemplate := strings.HasPrefix(c.cfg.Model, ModelNuExtract)

	var prompt string
	if useTemplate {
		prompt = templatePrompt(chunk, title)
	} else {
		prompt = arrayPrompt(chunk, title)
	}

	response, err := withRetry(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	if useTemplate {
		return parseObjectResponse(response, chunk, c.cfg.ConfidenceThreshold)
	}
	return parseArrayResponse(response, chunk, c.cfg.ConfidenceThreshold)
}

// generate performs one /api/generate call and returns the raw model text.
func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: genTemperature,
			TopP:        genTopP,
			NumPredict:  genMaxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return gen.Response, nil
}
