package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/memloader/memloader/pkg/logger"
)

// rawConversation mirrors one entry of a ChatGPT conversations.json export.
type rawConversation struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	CreateTime json.RawMessage       `json:"create_time"`
	UpdateTime json.RawMessage       `json:"update_time"`
	Mapping    map[string]rawMapNode `json:"mapping"`
}

type rawMapNode struct {
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content struct {
		Parts []any `json:"parts"`
	} `json:"content"`
	CreateTime json.RawMessage `json:"create_time"`
}

// Parser reads ChatGPT conversations.json export files.
type Parser struct {
	log logger.Logger
}

// NewParser creates an export parser.
func NewParser() *Parser {
	return &Parser{log: logger.Global().With("component", "export")}
}

// ParseFile parses a complete export file. Malformed conversations are
// logged and skipped rather than failing the whole export.
func (p *Parser) ParseFile(path string) ([]Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	return p.Parse(data)
}

// Parse parses export data: a JSON array of conversations, each carrying a
// mapping of message nodes.
func (p *Parser) Parse(data []byte) ([]Conversation, error) {
	var raw []rawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid export format: %w", err)
	}

	conversations := make([]Conversation, 0, len(raw))
	for _, rc := range raw {
		conv := p.parseConversation(rc)
		if conv != nil {
			conversations = append(conversations, *conv)
		}
	}

	p.log.Info("parsed export", "conversations", len(conversations))
	return conversations, nil
}

func (p *Parser) parseConversation(rc rawConversation) *Conversation {
	title := rc.Title
	if title == "" {
		title = "Untitled Conversation"
	}

	messages := make([]Message, 0, len(rc.Mapping))
	for id, node := range rc.Mapping {
		msg := parseMessage(node, id)
		if msg != nil {
			messages = append(messages, *msg)
		}
	}

	// The mapping is unordered; restore chronological order.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	return &Conversation{
		ID:        rc.ID,
		Title:     title,
		Messages:  messages,
		CreatedAt: parseTimestamp(rc.CreateTime),
		UpdatedAt: parseTimestamp(rc.UpdateTime),
	}
}

// parseMessage extracts a message from a mapping node. System messages,
// empty nodes, and empty content are skipped.
func parseMessage(node rawMapNode, id string) *Message {
	if node.Message == nil {
		return nil
	}

	role := node.Message.Author.Role
	if role == "" {
		role = "unknown"
	}
	if role == "system" {
		return nil
	}

	var parts []string
	for _, part := range node.Message.Content.Parts {
		s, ok := part.(string)
		if !ok || s == "" {
			continue
		}
		parts = append(parts, s)
	}
	content := strings.Join(parts, "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return &Message{
		Role:      role,
		Content:   content,
		Timestamp: parseTimestamp(node.Message.CreateTime),
		ID:        id,
	}
}

// parseTimestamp accepts the export's two timestamp shapes: a unix epoch
// number (possibly fractional) or an ISO-8601 string. Anything else yields
// the zero time.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
	}

	return time.Time{}
}
