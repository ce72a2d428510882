package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{Model: "gpt-4o-mini"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIExtract(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		reply := `{"memories": [{"content": "Works remotely from Lisbon", "category": "fact", "confidence": 0.9, "reasoning": "r"}]}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{
		BaseURL:             srv.URL,
		APIKey:              "test-key",
		Model:               "gpt-4o-mini",
		ConfidenceThreshold: 0.7,
	})
	require.NoError(t, err)

	records, err := c.Extract(context.Background(), "chunk text", "Remote work")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Works remotely from Lisbon", records[0].Content)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, genTemperature, gotReq.Temperature)
}

func TestOpenAIExtractEmptyChoices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), "chunk", "title")
	assert.Error(t, err)
}
