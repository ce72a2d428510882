package export

import (
	"fmt"
	"strings"
)

// Token estimation: the chunker works in characters and assumes roughly
// four characters per token.
const charsPerToken = 4

// Chunker splits conversation transcripts into overlapping chunks sized
// for LLM extraction.
type Chunker struct {
	chunkSize int // target size in tokens
	overlap   int // overlap between consecutive chunks in tokens
}

// NewChunker creates a Chunker. chunkSize and overlap are in tokens.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Transcript renders a conversation as extraction input: a title header
// followed by one "ROLE: content" block per message.
func Transcript(conv Conversation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s", conv.Title)
	for _, msg := range conv.Messages {
		fmt.Fprintf(&sb, "\n\n%s: %s", strings.ToUpper(msg.Role), msg.Content)
	}
	return sb.String()
}

// Chunks splits a conversation's transcript into overlapping chunks,
// preferring to break at a newline or sentence boundary past the chunk
// midpoint. Whitespace-only chunks are dropped.
func (c *Chunker) Chunks(conv Conversation) []string {
	text := Transcript(conv)

	charChunk := c.chunkSize * charsPerToken
	charOverlap := c.overlap * charsPerToken

	var chunks []string
	start := 0
	for start < len(text) {
		end := min(start+charChunk, len(text))

		if end < len(text) {
			// Break at a natural boundary when one exists past the midpoint.
			lastNewline := strings.LastIndex(text[start:end], "\n")
			lastPeriod := strings.LastIndex(text[start:end], ".")
			mid := charChunk / 2
			switch {
			case lastNewline > mid:
				end = start + lastNewline
			case lastPeriod > mid:
				end = start + lastPeriod + 1
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + charChunk - charOverlap
		if next < end {
			next = end
		}
		start = next
		if start >= len(text) {
			break
		}
	}

	return chunks
}
