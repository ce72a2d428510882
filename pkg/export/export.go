// Package export parses ChatGPT conversation exports and splits
// conversations into chunks sized for LLM extraction.
package export

import (
	"time"
)

// Message is a single message in a conversation.
type Message struct {
	// Role is the author role, "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text with all parts joined.
	Content string `json:"content"`

	// Timestamp is the message creation time, zero if unknown.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// ID is the message's node ID within the export mapping.
	ID string `json:"id,omitempty"`
}

// Conversation is a complete parsed conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
