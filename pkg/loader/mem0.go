package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// ErrMissingMem0Key is returned when a Mem0Client is created without a key.
var ErrMissingMem0Key = errors.New("mem0 api key is required")

// deleteBatchLimit is the platform's cap on IDs per batch delete.
const deleteBatchLimit = 1000

// contextTruncateLen caps the original context carried in upload metadata.
const contextTruncateLen = 500

// Mem0Config configures a Mem0Client.
type Mem0Config struct {
	// BaseURL is the platform API root.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// UserID scopes uploaded memories.
	UserID string

	// Timeout bounds a single request.
	Timeout time.Duration

	// BatchPause is the delay between upload batches.
	BatchPause time.Duration
}

// Mem0Client uploads memories to the mem0 platform.
type Mem0Client struct {
	cfg  Mem0Config
	http *http.Client
	log  logger.Logger
}

// NewMem0Client creates a client, failing fast on a missing API key.
func NewMem0Client(cfg Mem0Config) (*Mem0Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingMem0Key
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mem0.ai"
	}
	if cfg.UserID == "" {
		cfg.UserID = "chatgpt_import"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = time.Second
	}

	return &Mem0Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.Global().With("component", "mem0", "user_id", cfg.UserID),
	}, nil
}

// Load implements Loader. Records upload one at a time in batches with a
// pause between batches; per-record failures are counted and logged.
func (c *Mem0Client) Load(ctx context.Context, records []memory.Record, batchSize int) (*UploadStats, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	c.log.Info("starting upload", "count", len(records), "batch_size", batchSize)

	stats := &UploadStats{TotalProcessed: len(records)}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		c.log.Info("uploading batch", "batch", start/batchSize+1, "size", end-start)

		for _, rec := range records[start:end] {
			if err := c.add(ctx, rec); err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				c.log.Error("failed to upload memory", "error", err)
				stats.Failed++
				continue
			}
			stats.Uploaded++
		}

		if end < len(records) {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(c.cfg.BatchPause):
			}
		}
	}

	if stats.TotalProcessed > 0 {
		stats.SuccessRate = float64(stats.Uploaded) / float64(stats.TotalProcessed)
	}
	c.log.Info("upload complete",
		"uploaded", stats.Uploaded,
		"failed", stats.Failed,
	)
	return stats, nil
}

type mem0Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addRequest struct {
	Messages []mem0Message  `json:"messages"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// add uploads one record. The memory is phrased as a user message so the
// platform's own extraction stores it verbatim.
func (c *Mem0Client) add(ctx context.Context, rec memory.Record) error {
	content := fmt.Sprintf("Remember: %s", rec.Content)
	if rec.Category != "" && rec.Category != memory.CategoryContext {
		content = fmt.Sprintf("[%s] %s", strings.ToUpper(rec.Category), content)
	}

	metadata := map[string]any{
		"source":           "chatgpt_export",
		"category":         rec.Category,
		"confidence":       rec.Confidence,
		"original_context": truncate(rec.Context, contextTruncateLen),
	}
	for k, v := range rec.Metadata {
		metadata[k] = v
	}

	body := addRequest{
		Messages: []mem0Message{{Role: "user", Content: content}},
		UserID:   c.cfg.UserID,
		Metadata: metadata,
	}
	return c.do(ctx, http.MethodPost, "/v1/memories/", body, nil)
}

// Existing implements Loader.
func (c *Mem0Client) Existing(ctx context.Context) ([]StoredMemory, error) {
	var memories []StoredMemory
	query := url.Values{"user_id": {c.cfg.UserID}}
	path := "/v1/memories/?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &memories); err != nil {
		return nil, err
	}
	c.log.Info("fetched existing memories", "count", len(memories))
	return memories, nil
}

// Delete implements Loader. IDs are deleted in platform-limit batches; a
// failed batch is logged and skipped.
func (c *Mem0Client) Delete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += deleteBatchLimit {
		end := min(start+deleteBatchLimit, len(ids))
		batch := ids[start:end]

		body := map[string]any{"memory_ids": batch}
		if err := c.do(ctx, http.MethodDelete, "/v1/batch/", body, nil); err != nil {
			if ctx.Err() != nil {
				return deleted, ctx.Err()
			}
			c.log.Error("failed to delete memory batch", "error", err)
			continue
		}
		deleted += len(batch)
	}
	c.log.Info("deleted existing memories", "count", deleted)
	return deleted, nil
}

// Close implements Loader. The HTTP client holds nothing to release.
func (c *Mem0Client) Close() error { return nil }

// do performs one API request, decoding the response into out when
// non-nil.
func (c *Mem0Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &SerializationError{Operation: "marshal", Cause: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mem0 API error: HTTP %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &SerializationError{Operation: "unmarshal", Cause: err}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
