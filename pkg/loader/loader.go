// Package loader uploads processed memory records to a storage target:
// the mem0 platform or a badger-backed local store.
package loader

import (
	"context"
	"fmt"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
	"github.com/memloader/memloader/pkg/processor"
)

// StoredMemory is a memory already present in a storage target.
type StoredMemory struct {
	ID     string `json:"id"`
	Memory string `json:"memory"`
}

// UploadStats summarizes a Load call.
type UploadStats struct {
	TotalProcessed int     `json:"total_processed"`
	Uploaded       int     `json:"uploaded"`
	Failed         int     `json:"failed"`
	SuccessRate    float64 `json:"success_rate"`
}

// Loader is a storage target for processed memories.
type Loader interface {
	// Load uploads records in batches and reports per-record outcomes.
	// Individual upload failures are counted, not returned.
	Load(ctx context.Context, records []memory.Record, batchSize int) (*UploadStats, error)

	// Existing lists the memories already stored for the configured user.
	Existing(ctx context.Context) ([]StoredMemory, error)

	// Delete removes memories by ID and returns how many were deleted.
	Delete(ctx context.Context, ids []string) (int, error)

	// Close releases the target's resources.
	Close() error
}

// NotFoundError indicates the requested memory does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("memory not found: %s", e.ID)
}

// SerializationError indicates a record could not be encoded or decoded.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization %s failed: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// StorageUnavailableError indicates the storage target cannot be reached
// or opened.
type StorageUnavailableError struct {
	Cause error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Cause)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Cause }

// PrepareForUpload filters records down to the set worth uploading:
// records passing boundary validation, minus duplicates within the batch
// (by comparison-normalized content), minus records whose content already
// exists in the target. A target listing failure is logged and skipped so
// offline targets still get the validated batch.
func PrepareForUpload(ctx context.Context, target Loader, records []memory.Record, categories []string, threshold float64) []memory.Record {
	log := logger.Global().With("component", "loader")
	log.Info("preparing memories for upload", "count", len(records))

	valid := make([]memory.Record, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(categories, threshold); err != nil {
			log.Debug("skipping invalid memory", "error", err)
			continue
		}
		valid = append(valid, rec)
	}
	log.Info("validated memories", "valid", len(valid), "rejected", len(records)-len(valid))

	seen := make(map[string]struct{}, len(valid))
	unique := make([]memory.Record, 0, len(valid))
	for _, rec := range valid {
		normalized := processor.NormalizeContent(rec.Content)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, rec)
	}

	existing, err := target.Existing(ctx)
	if err != nil {
		log.Warn("could not list existing memories, skipping duplicate check", "error", err)
		return unique
	}
	existingContent := make(map[string]struct{}, len(existing))
	for _, mem := range existing {
		existingContent[mem.Memory] = struct{}{}
	}

	fresh := make([]memory.Record, 0, len(unique))
	for _, rec := range unique {
		if _, ok := existingContent[rec.Content]; ok {
			log.Debug("skipping memory already stored", "content", rec.Content)
			continue
		}
		fresh = append(fresh, rec)
	}

	log.Info("memories ready for upload", "count", len(fresh))
	return fresh
}
