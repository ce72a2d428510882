package processor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/memloader/memloader/pkg/memory"
)

// tokenRange builds a content string of tokens "w<from>" through "w<to>".
func tokenRange(from, to int) string {
	var sb strings.Builder
	for i := from; i <= to; i++ {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "w%d", i)
	}
	return sb.String()
}

func TestSimilarThresholdBoundary(t *testing.T) {
	// 7 shared tokens, 10 in the union: similarity is exactly 0.7.
	a := memory.NewRecord("t1 t2 t3 t4 t5 t6 t7 t8", "fact", 0.9, "")
	b := memory.NewRecord("t1 t2 t3 t4 t5 t6 t7 x y", "fact", 0.9, "")
	if !similar(a, b) {
		t.Error("similarity exactly 0.7 must merge")
	}

	// 9 shared tokens, 13 in the union: similarity 0.692, just below.
	c := memory.NewRecord("t1 t2 t3 t4 t5 t6 t7 t8 t9 u1 u2", "fact", 0.9, "")
	d := memory.NewRecord("t1 t2 t3 t4 t5 t6 t7 t8 t9 v1 v2", "fact", 0.9, "")
	if similar(c, d) {
		t.Error("similarity below 0.7 must not merge")
	}
}

func TestSimilarCrossCategory(t *testing.T) {
	a := memory.NewRecord("User likes Python", "preference", 0.9, "")
	b := memory.NewRecord("User likes Python", "skill", 0.9, "")
	if similar(a, b) {
		t.Error("records in different categories must never be similar")
	}
}

func TestMergeWithinCategoryGreedySeed(t *testing.T) {
	// B is similar to seed A, and C is similar to B but not to A. The
	// greedy seed-based clustering must produce {A,B} and {C}, never
	// {A,B,C}.
	// Sliding windows over w1..w24: a~b is 19/21, b~c is 17/23, a~c is
	// 16/24 and lands below the threshold.
	a := memory.NewRecord(tokenRange(1, 20), "fact", 0.9, "")
	b := memory.NewRecord(tokenRange(2, 21), "fact", 0.8, "")
	c := memory.NewRecord(tokenRange(5, 24), "fact", 0.7, "")

	if !similar(a, b) {
		t.Fatal("fixture: a and b must be similar")
	}
	if !similar(b, c) {
		t.Fatal("fixture: b and c must be similar")
	}
	if similar(a, c) {
		t.Fatal("fixture: a and c must not be similar")
	}

	p := New(0.0)
	stats := &Stats{Categories: make(map[string]int)}
	out := p.mergeWithinCategory([]memory.Record{a, b, c}, stats)

	if len(out) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(out))
	}
	if stats.MergedMemories != 1 {
		t.Errorf("expected 1 absorbed record, got %d", stats.MergedMemories)
	}
	if out[1].Content != c.Content {
		t.Errorf("c should survive unmerged, got %q", out[1].Content)
	}
}

func TestMergeGroupReduction(t *testing.T) {
	a := memory.NewRecord("likes strong coffee", "preference", 0.8, "chunk-1")
	a.Metadata["reasoning"] = "first"
	a.Metadata["source"] = "conv-a"
	b := memory.NewRecord("likes strong black coffee", "preference", 0.9, "chunk-2")
	b.Metadata["reasoning"] = "second"
	c := memory.NewRecord("likes coffee", "preference", 0.7, "chunk-1")

	got := mergeGroup([]memory.Record{a, b, c})

	if got.Category != "preference" {
		t.Errorf("category = %q", got.Category)
	}
	want := (0.8 + 0.9 + 0.7) / 3
	if diff := got.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %f, want %f", got.Confidence, want)
	}
	// Longest content wins for groups of three or fewer.
	if got.Content != "likes strong black coffee" {
		t.Errorf("content = %q", got.Content)
	}
	// Distinct contexts, first-seen order.
	if got.Context != "chunk-1 | chunk-2" {
		t.Errorf("context = %q", got.Context)
	}
	// Later records overwrite earlier metadata keys; untouched keys survive.
	if got.Metadata["reasoning"] != "second" {
		t.Errorf("metadata reasoning = %v", got.Metadata["reasoning"])
	}
	if got.Metadata["source"] != "conv-a" {
		t.Errorf("metadata source = %v", got.Metadata["source"])
	}
}

func TestMergeGroupTiesBreakToFirst(t *testing.T) {
	a := memory.NewRecord("enjoys hiking trips", "preference", 0.9, "")
	b := memory.NewRecord("likes hiking a lot!", "preference", 0.9, "")
	got := mergeGroup([]memory.Record{a, b})
	if got.Category != a.Category {
		t.Errorf("tie must break to first occurrence")
	}
	// Equal-length tie on content also breaks to first occurrence.
	if len(a.Content) == len(b.Content) && got.Content != a.Content {
		t.Errorf("content tie must break to first occurrence, got %q", got.Content)
	}
}

func TestCombineContentLargeGroup(t *testing.T) {
	group := []memory.Record{
		memory.NewRecord("drinks coffee", "preference", 0.8, ""),
		memory.NewRecord("drinks coffee every morning before work", "preference", 0.8, ""),
		memory.NewRecord("drinks coffee every morning", "preference", 0.8, ""),
		memory.NewRecord("prefers espresso on weekends", "preference", 0.8, ""),
	}

	got := combineContent(group)
	parts := strings.Split(got, "; ")

	// Longest first; contents whose words are all already seen are skipped.
	if parts[0] != "drinks coffee every morning before work" {
		t.Errorf("first part = %q", parts[0])
	}
	for _, part := range parts {
		if part == "drinks coffee" || part == "drinks coffee every morning" {
			t.Errorf("subset content %q should have been skipped", part)
		}
	}
	if !strings.Contains(got, "prefers espresso on weekends") {
		t.Errorf("novel content missing from %q", got)
	}
}
