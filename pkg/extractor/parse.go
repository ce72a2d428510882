package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/memloader/memloader/pkg/memory"
)

// rawMemory is one memory entry as models emit it. Confidence is left
// untyped because models sometimes quote the number.
type rawMemory struct {
	Content    string `json:"content"`
	Category   string `json:"category"`
	Confidence any    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// memoriesPayload is the object-shaped reply: {"memories": [...]}.
type memoriesPayload struct {
	Memories []rawMemory `json:"memories"`
}

// parseObjectResponse extracts records from a reply expected to contain a
// {"memories": [...]} object somewhere in the text.
func parseObjectResponse(response, chunk string, threshold float64) ([]memory.Record, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var payload memoriesPayload
	if err := json.Unmarshal([]byte(response[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parse response JSON: %w", err)
	}

	return buildRecords(payload.Memories, chunk, threshold), nil
}

// parseArrayResponse extracts records from a reply expected to contain a
// bare JSON array of memory entries.
func parseArrayResponse(response, chunk string, threshold float64) ([]memory.Record, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var entries []rawMemory
	if err := json.Unmarshal([]byte(response[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("parse response JSON: %w", err)
	}

	return buildRecords(entries, chunk, threshold), nil
}

// buildRecords converts parsed entries to records. Entries with unusable
// confidence values are skipped, never fatal. Records below the threshold
// are dropped here at the extraction boundary; the pipeline filters again.
func buildRecords(entries []rawMemory, chunk string, threshold float64) []memory.Record {
	records := make([]memory.Record, 0, len(entries))
	for _, entry := range entries {
		confidence, err := coerceConfidence(entry.Confidence)
		if err != nil {
			continue
		}
		if confidence < threshold {
			continue
		}

		category := entry.Category
		if category == "" {
			category = memory.CategoryContext
		}

		rec := memory.NewRecord(entry.Content, category, confidence, chunk)
		if entry.Reasoning != "" {
			rec.Metadata["reasoning"] = entry.Reasoning
		}
		records = append(records, rec)
	}
	return records
}

// coerceConfidence accepts the confidence shapes models produce: a JSON
// number, a quoted number, or a missing field (treated as 0.5).
func coerceConfidence(v any) (float64, error) {
	switch c := v.(type) {
	case nil:
		return 0.5, nil
	case float64:
		return c, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q is not a number", c)
		}
		return f, nil
	case json.Number:
		return c.Float64()
	default:
		return 0, fmt.Errorf("confidence has unsupported type %T", v)
	}
}
