package processor

import (
	"sort"
	"strings"

	"github.com/memloader/memloader/pkg/memory"
)

// SimilarityThreshold is the minimum Jaccard similarity for two records in
// the same category to be merged.
const SimilarityThreshold = 0.7

// similar reports whether two records are close enough to merge. Records in
// different categories never merge; grouping already guarantees this, the
// check is kept as a guard.
func similar(a, b memory.Record) bool {
	if a.Category != b.Category {
		return false
	}
	return jaccard(
		tokenSet(NormalizeContent(a.Content)),
		tokenSet(NormalizeContent(b.Content)),
	) >= SimilarityThreshold
}

// mergeWithinCategory clusters same-category records and reduces each
// multi-record cluster to one representative.
//
// Clustering is greedy and seed-based: each unused record in input order
// seeds a cluster, and every later unused record similar to the SEED joins
// it. Members are not compared to each other, so clusters are chains from
// the seed rather than a pairwise closure. A~B and B~C with A!~C yields
// {A,B} and {C}. This is intentional; a full closure would change output
// cardinality.
func (p *Processor) mergeWithinCategory(records []memory.Record, stats *Stats) []memory.Record {
	if len(records) <= 1 {
		return records
	}

	merged := make([]memory.Record, 0, len(records))
	used := make([]bool, len(records))

	for i, seed := range records {
		if used[i] {
			continue
		}
		used[i] = true

		group := []memory.Record{seed}
		for j := i + 1; j < len(records); j++ {
			if used[j] {
				continue
			}
			if similar(seed, records[j]) {
				group = append(group, records[j])
				used[j] = true
			}
		}

		if len(group) > 1 {
			merged = append(merged, mergeGroup(group))
			stats.MergedMemories += len(group) - 1
		} else {
			merged = append(merged, seed)
		}
	}

	return merged
}

// mergeGroup reduces a cluster of two or more similar records to a single
// record: the category of the most confident member, the mean confidence,
// the distinct non-empty contexts joined with " | " in first-seen order,
// metadata shallow-merged in group order (later keys win), and combined
// content.
func mergeGroup(group []memory.Record) memory.Record {
	base := group[0]
	for _, rec := range group[1:] {
		if rec.Confidence > base.Confidence {
			base = rec
		}
	}

	var confidenceSum float64
	for _, rec := range group {
		confidenceSum += rec.Confidence
	}

	var contexts []string
	seenContexts := make(map[string]struct{})
	for _, rec := range group {
		if rec.Context == "" {
			continue
		}
		if _, ok := seenContexts[rec.Context]; ok {
			continue
		}
		seenContexts[rec.Context] = struct{}{}
		contexts = append(contexts, rec.Context)
	}

	metadata := make(map[string]any)
	for _, rec := range group {
		for k, v := range rec.Metadata {
			metadata[k] = v
		}
	}

	return memory.Record{
		Content:    combineContent(group),
		Category:   base.Category,
		Confidence: confidenceSum / float64(len(group)),
		Context:    strings.Join(contexts, " | "),
		Metadata:   metadata,
	}
}

// combineContent merges the content of a cluster. Small clusters keep the
// longest member verbatim. Larger clusters walk the contents longest-first
// and keep every one whose word set adds at least one token not seen in the
// contents already kept, joined with "; ".
func combineContent(group []memory.Record) string {
	contents := make([]string, len(group))
	for i, rec := range group {
		contents[i] = rec.Content
	}

	if len(contents) <= 3 {
		longest := contents[0]
		for _, c := range contents[1:] {
			if len(c) > len(longest) {
				longest = c
			}
		}
		return longest
	}

	sort.SliceStable(contents, func(i, j int) bool {
		return len(contents[i]) > len(contents[j])
	})

	var parts []string
	seenWords := make(map[string]struct{})
	for _, content := range contents {
		words := tokenSet(strings.ToLower(content))
		if isSubset(words, seenWords) {
			continue
		}
		parts = append(parts, content)
		for w := range words {
			seenWords[w] = struct{}{}
		}
	}

	return strings.Join(parts, "; ")
}

// isSubset reports whether every key of a is present in b. An empty a is a
// subset of anything.
func isSubset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
