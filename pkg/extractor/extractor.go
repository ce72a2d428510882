// Package extractor turns conversation chunks into candidate memory
// records by calling an LLM provider (Ollama or OpenAI) and parsing its
// JSON reply. Parsing is recovery-oriented: models wrap JSON in prose, so
// the parser hunts for the payload and skips entries it cannot salvage.
package extractor

import (
	"context"

	"github.com/memloader/memloader/pkg/memory"
)

// Extractor extracts memory records from a single text chunk.
type Extractor interface {
	// Extract returns the candidate records found in chunk. title is the
	// source conversation title, passed for prompt context. A chunk that
	// yields nothing is not an error.
	Extract(ctx context.Context, chunk, title string) ([]memory.Record, error)
}

// Generation parameters shared by both providers. Low temperature keeps
// extraction output consistent across chunks.
const (
	genTemperature = 0.3
	genTopP        = 0.9
	genMaxTokens   = 2000
)
