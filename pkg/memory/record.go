// Package memory defines the memory record model shared by the extraction,
// processing, and upload stages of memloader.
package memory

import (
	"fmt"
	"slices"
	"strings"
)

// Memory categories recognized by downstream validation. The processing
// pipeline itself treats the category as an opaque grouping key.
const (
	CategoryPreference       = "preference"
	CategoryFact             = "fact"
	CategoryPattern          = "pattern"
	CategoryGoal             = "goal"
	CategorySkill            = "skill"
	CategoryRelationship     = "relationship"
	CategoryContext          = "context"
	CategoryDecisionCriteria = "decision_criteria"
)

// Content length bounds enforced at the upload boundary.
const (
	MinContentLength = 10
	MaxContentLength = 1000
)

// DefaultCategories returns the default category set. Callers get a fresh
// slice and may append to or reorder it freely.
func DefaultCategories() []string {
	return []string{
		CategoryPreference,
		CategoryFact,
		CategoryPattern,
		CategoryGoal,
		CategorySkill,
		CategoryRelationship,
		CategoryContext,
		CategoryDecisionCriteria,
	}
}

// Record represents a single extracted memory statement. Records flow
// through the pipeline as values; every transformation produces a new
// Record rather than mutating one in place.
type Record struct {
	// Content is the memory statement text.
	Content string `json:"content"`

	// Category classifies the memory (see the Category constants).
	Category string `json:"category"`

	// Confidence is the extractor's confidence, nominally in [0, 1].
	// The pipeline compares but never clamps it.
	Confidence float64 `json:"confidence"`

	// Context records where the memory came from, typically the source
	// text chunk. Used for traceability, never for deduplication.
	Context string `json:"context,omitempty"`

	// Metadata carries extractor-specific fields (e.g. reasoning) through
	// to the upload target.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewRecord creates a Record with its own empty metadata map. Each record
// gets an independent map instance so metadata is never aliased between
// records.
func NewRecord(content, category string, confidence float64, context string) Record {
	return Record{
		Content:    content,
		Category:   category,
		Confidence: confidence,
		Context:    context,
		Metadata:   make(map[string]any),
	}
}

// ValidationError describes why a record failed boundary validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
}

// Validate checks a record against the upload-boundary rules: non-blank
// content within length bounds, confidence within [0, 1] and at or above
// the threshold, and a category from the configured set. The processing
// pipeline does not call this; it accepts any structurally complete record.
func (r Record) Validate(categories []string, threshold float64) error {
	if strings.TrimSpace(r.Content) == "" {
		return &ValidationError{Field: "content", Reason: "is empty"}
	}
	if len(r.Content) < MinContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("shorter than %d characters", MinContentLength)}
	}
	if len(r.Content) > MaxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("longer than %d characters", MaxContentLength)}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "outside [0, 1]"}
	}
	if r.Confidence < threshold {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("below threshold %.2f", threshold)}
	}
	if !slices.Contains(categories, r.Category) {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("%q not in configured set", r.Category)}
	}
	return nil
}
