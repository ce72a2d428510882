// Package processor implements the memory processing pipeline: confidence
// filtering, exact deduplication, lexical similarity merging, and content
// cleanup for extracted memory records.
//
// The pipeline is pure computation. It performs no I/O, holds no state
// across calls, and is deterministic: identical input order and
// configuration produce identical output. Concurrent Process calls are safe
// as long as each call owns its input slice.
package processor

import (
	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// DefaultConfidenceThreshold is used when no threshold is configured.
const DefaultConfidenceThreshold = 0.7

// Stats reports the funnel of a single Process call. It is created fresh
// per call and returned read-only to the caller.
type Stats struct {
	// TotalInput is the number of records handed to Process.
	TotalInput int `json:"total_input"`

	// TotalOutput is the number of records in the final cleaned list.
	TotalOutput int `json:"total_output"`

	// DuplicatesRemoved counts records dropped by exact deduplication.
	DuplicatesRemoved int `json:"duplicates_removed"`

	// LowConfidenceFiltered counts records below the confidence threshold.
	LowConfidenceFiltered int `json:"low_confidence_filtered"`

	// MergedMemories counts records absorbed into merges: the sum over
	// merge groups of (group size - 1), not the number of groups.
	MergedMemories int `json:"merged_memories"`

	// EmptiedFiltered counts records whose content became empty during
	// storage cleaning and were dropped from the output.
	EmptiedFiltered int `json:"emptied_filtered"`

	// Categories maps category to output count. Only categories present
	// in the output appear.
	Categories map[string]int `json:"categories"`
}

// Processor cleans, deduplicates, and merges extracted memory records.
type Processor struct {
	threshold float64
	log       logger.Logger
}

// New creates a Processor with the given confidence threshold.
func New(threshold float64) *Processor {
	return &Processor{
		threshold: threshold,
		log:       logger.Global().With("component", "processor"),
	}
}

// Process runs the full pipeline over records:
//
//	input -> confidence filter -> exact dedup -> per-category merge -> storage clean
//
// and returns the cleaned records with the run's statistics. Empty input
// yields an empty output and all-zero stats.
func (p *Processor) Process(records []memory.Record) ([]memory.Record, *Stats) {
	p.log.Info("processing extracted memories", "count", len(records))

	stats := &Stats{
		TotalInput: len(records),
		Categories: make(map[string]int),
	}

	confident := p.filterByConfidence(records, stats)
	unique := p.removeDuplicates(confident, stats)
	merged := p.mergeSimilar(unique, stats)
	cleaned := p.cleanRecords(merged, stats)

	stats.TotalOutput = len(cleaned)
	for _, rec := range cleaned {
		stats.Categories[rec.Category]++
	}

	p.log.Info("processing complete", "output", len(cleaned))
	return cleaned, stats
}

// filterByConfidence keeps records whose confidence is at or above the
// threshold, preserving order. Confidence is compared, never range-checked.
func (p *Processor) filterByConfidence(records []memory.Record, stats *Stats) []memory.Record {
	filtered := make([]memory.Record, 0, len(records))
	for _, rec := range records {
		if rec.Confidence >= p.threshold {
			filtered = append(filtered, rec)
			continue
		}
		stats.LowConfidenceFiltered++
		p.log.Debug("filtered low confidence memory", "content", truncate(rec.Content, 50))
	}
	p.log.Info("confidence filter applied", "filtered", stats.LowConfidenceFiltered)
	return filtered
}

// removeDuplicates drops records whose comparison-normalized content was
// already seen, across all categories. First occurrence wins and keeps its
// position.
func (p *Processor) removeDuplicates(records []memory.Record, stats *Stats) []memory.Record {
	seen := make(map[string]struct{}, len(records))
	unique := make([]memory.Record, 0, len(records))

	for _, rec := range records {
		normalized := NormalizeContent(rec.Content)
		if _, ok := seen[normalized]; ok {
			stats.DuplicatesRemoved++
			p.log.Debug("removed duplicate memory", "content", truncate(rec.Content, 50))
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, rec)
	}

	p.log.Info("exact deduplication applied", "removed", stats.DuplicatesRemoved)
	return unique
}

// mergeSimilar groups records by category and merges near-duplicates within
// each group. Categories are processed in order of first appearance so the
// whole pipeline stays deterministic.
func (p *Processor) mergeSimilar(records []memory.Record, stats *Stats) []memory.Record {
	groups := make(map[string][]memory.Record)
	var order []string
	for _, rec := range records {
		if _, ok := groups[rec.Category]; !ok {
			order = append(order, rec.Category)
		}
		groups[rec.Category] = append(groups[rec.Category], rec)
	}

	merged := make([]memory.Record, 0, len(records))
	for _, category := range order {
		merged = append(merged, p.mergeWithinCategory(groups[category], stats)...)
	}

	p.log.Info("similarity merge applied", "merged", stats.MergedMemories)
	return merged
}

// cleanRecords rewrites each record with storage-cleaned content. Records
// that end up with empty content are dropped and counted.
func (p *Processor) cleanRecords(records []memory.Record, stats *Stats) []memory.Record {
	cleaned := make([]memory.Record, 0, len(records))
	for _, rec := range records {
		content := CleanContent(rec.Content)
		if content == "" {
			stats.EmptiedFiltered++
			continue
		}
		cleaned = append(cleaned, memory.Record{
			Content:    content,
			Category:   rec.Category,
			Confidence: rec.Confidence,
			Context:    rec.Context,
			Metadata:   rec.Metadata,
		})
	}
	return cleaned
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
