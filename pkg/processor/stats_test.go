package processor

import (
	"testing"

	"github.com/memloader/memloader/pkg/memory"
)

func recordsWithConfidences(confidences ...float64) []memory.Record {
	records := make([]memory.Record, len(confidences))
	for i, c := range confidences {
		records[i] = memory.NewRecord("content", "fact", c, "")
	}
	return records
}

func TestConfidenceStatisticsEmpty(t *testing.T) {
	got := ConfidenceStatistics(nil)
	if got.Min != 0 || got.Max != 0 || got.Avg != 0 || got.Median != 0 {
		t.Errorf("empty input must yield zeros, got %+v", got)
	}
}

func TestConfidenceStatisticsOdd(t *testing.T) {
	got := ConfidenceStatistics(recordsWithConfidences(0.9, 0.7, 0.8))
	if got.Min != 0.7 || got.Max != 0.9 {
		t.Errorf("min/max = %f/%f", got.Min, got.Max)
	}
	if got.Median != 0.8 {
		t.Errorf("median = %f, want 0.8", got.Median)
	}
	want := (0.7 + 0.8 + 0.9) / 3
	if diff := got.Avg - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg = %f, want %f", got.Avg, want)
	}
}

func TestConfidenceStatisticsEven(t *testing.T) {
	got := ConfidenceStatistics(recordsWithConfidences(0.6, 0.9, 0.7, 0.8))
	if got.Median != 0.75 {
		t.Errorf("median = %f, want 0.75", got.Median)
	}
}

func TestCategoryDistribution(t *testing.T) {
	records := []memory.Record{
		memory.NewRecord("a", "fact", 0.9, ""),
		memory.NewRecord("b", "fact", 0.9, ""),
		memory.NewRecord("c", "preference", 0.9, ""),
	}

	got := CategoryDistribution(records)
	if got["fact"] != 2 || got["preference"] != 1 {
		t.Errorf("distribution = %v", got)
	}
	if _, ok := got["goal"]; ok {
		t.Error("absent categories must not appear as keys")
	}
}
