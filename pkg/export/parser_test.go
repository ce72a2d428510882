package export

import (
	"strings"
	"testing"
)

const sampleExport = `[
  {
    "id": "conv-1",
    "title": "Coffee talk",
    "create_time": 1700000000.5,
    "update_time": "2023-11-15T12:30:00Z",
    "mapping": {
      "n3": {
        "message": {
          "author": {"role": "assistant"},
          "content": {"parts": ["Dark roast it is."]},
          "create_time": 1700000300
        }
      },
      "n1": {
        "message": {
          "author": {"role": "system"},
          "content": {"parts": ["You are a helpful assistant."]},
          "create_time": 1700000100
        }
      },
      "n2": {
        "message": {
          "author": {"role": "user"},
          "content": {"parts": ["I only drink dark roast.", "Nothing else."]},
          "create_time": 1700000200
        }
      },
      "n4": {"message": null},
      "n5": {
        "message": {
          "author": {"role": "user"},
          "content": {"parts": ["   "]},
          "create_time": 1700000400
        }
      }
    }
  },
  {
    "id": "conv-2",
    "title": "",
    "mapping": {}
  }
]`

func TestParserParse(t *testing.T) {
	p := NewParser()
	convs, err := p.Parse([]byte(sampleExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}

	conv := convs[0]
	if conv.ID != "conv-1" || conv.Title != "Coffee talk" {
		t.Errorf("conversation header = %q/%q", conv.ID, conv.Title)
	}
	// System, nil, and whitespace-only messages are skipped.
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	// Mapping order is arbitrary; messages come back chronological.
	if conv.Messages[0].Role != "user" || conv.Messages[1].Role != "assistant" {
		t.Errorf("messages out of order: %s, %s", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	// Content parts join with newlines.
	if conv.Messages[0].Content != "I only drink dark roast.\nNothing else." {
		t.Errorf("joined content = %q", conv.Messages[0].Content)
	}
	if conv.CreatedAt.IsZero() || conv.UpdatedAt.IsZero() {
		t.Error("both timestamp formats should parse")
	}

	if convs[1].Title != "Untitled Conversation" {
		t.Errorf("missing title should default, got %q", convs[1].Title)
	}
}

func TestParserParseInvalid(t *testing.T) {
	p := NewParser()
	if _, err := p.Parse([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestTranscript(t *testing.T) {
	conv := Conversation{
		Title: "Coffee talk",
		Messages: []Message{
			{Role: "user", Content: "I only drink dark roast."},
			{Role: "assistant", Content: "Noted."},
		},
	}

	got := Transcript(conv)
	if !strings.HasPrefix(got, "Title: Coffee talk") {
		t.Errorf("transcript missing title header: %q", got)
	}
	if !strings.Contains(got, "USER: I only drink dark roast.") {
		t.Errorf("transcript missing user line: %q", got)
	}
	if !strings.Contains(got, "ASSISTANT: Noted.") {
		t.Errorf("transcript missing assistant line: %q", got)
	}
}

func TestChunkerSplits(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The user described their morning routine in detail.\n")
	}
	conv := Conversation{
		Title:    "Routine",
		Messages: []Message{{Role: "user", Content: sb.String()}},
	}

	// 100 tokens -> 400 characters per chunk.
	c := NewChunker(100, 10)
	chunks := c.Chunks(conv)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if len(chunk) > 100*charsPerToken {
			t.Errorf("chunk %d exceeds target size: %d chars", i, len(chunk))
		}
	}
}

func TestChunkerSmallConversation(t *testing.T) {
	conv := Conversation{
		Title:    "Short",
		Messages: []Message{{Role: "user", Content: "I prefer tea."}},
	}

	chunks := NewChunker(1500, 200).Chunks(conv)
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "I prefer tea.") {
		t.Errorf("chunk lost content: %q", chunks[0])
	}
}
