package processor

import (
	"sort"

	"github.com/memloader/memloader/pkg/memory"
)

// ConfidenceStats holds descriptive statistics over record confidences.
type ConfidenceStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
}

// ConfidenceStatistics computes min, max, mean, and median confidence over
// records. Empty input yields all zeros, never NaN.
func ConfidenceStatistics(records []memory.Record) ConfidenceStats {
	if len(records) == 0 {
		return ConfidenceStats{}
	}

	confidences := make([]float64, len(records))
	var sum float64
	for i, rec := range records {
		confidences[i] = rec.Confidence
		sum += rec.Confidence
	}
	sort.Float64s(confidences)

	n := len(confidences)
	var median float64
	if n%2 == 1 {
		median = confidences[n/2]
	} else {
		median = (confidences[n/2-1] + confidences[n/2]) / 2
	}

	return ConfidenceStats{
		Min:    confidences[0],
		Max:    confidences[n-1],
		Avg:    sum / float64(n),
		Median: median,
	}
}

// CategoryDistribution counts records per category. Only categories present
// in the input appear as keys.
func CategoryDistribution(records []memory.Record) map[string]int {
	distribution := make(map[string]int)
	for _, rec := range records {
		distribution[rec.Category]++
	}
	return distribution
}
