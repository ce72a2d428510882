package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// LocalConfig configures a LocalStore.
type LocalConfig struct {
	// Path is the badger database directory.
	Path string

	// SyncWrites makes every write durable before returning.
	SyncWrites bool
}

// LocalStore is a badger-backed storage target for offline runs: memories
// land in a local database instead of the mem0 platform.
type LocalStore struct {
	db  *badger.DB
	log logger.Logger
}

// storedRecord is the persisted form of a memory record.
type storedRecord struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	Context    string         `json:"context,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Key layout: memory:<id> holds the record, memory:index:category:<cat>:<id>
// is an empty index entry.
func memoryKey(id string) []byte {
	return []byte("memory:" + id)
}

func categoryIndexKey(category, id string) []byte {
	return []byte(fmt.Sprintf("memory:index:category:%s:%s", category, id))
}

// NewLocalStore opens (or creates) the local database.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StorageUnavailableError{Cause: err}
	}

	return &LocalStore{
		db:  db,
		log: logger.Global().With("component", "local-store", "path", cfg.Path),
	}, nil
}

// Load implements Loader. Each record gets a fresh UUID and is written in
// its own transaction so one bad record cannot sink a batch.
func (s *LocalStore) Load(ctx context.Context, records []memory.Record, batchSize int) (*UploadStats, error) {
	stats := &UploadStats{TotalProcessed: len(records)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.save(rec); err != nil {
			s.log.Error("failed to store memory", "error", err)
			stats.Failed++
			continue
		}
		stats.Uploaded++
	}

	if stats.TotalProcessed > 0 {
		stats.SuccessRate = float64(stats.Uploaded) / float64(stats.TotalProcessed)
	}
	s.log.Info("stored memories locally", "stored", stats.Uploaded, "failed", stats.Failed)
	return stats, nil
}

func (s *LocalStore) save(rec memory.Record) error {
	stored := storedRecord{
		ID:         uuid.NewString(),
		Content:    rec.Content,
		Category:   rec.Category,
		Confidence: rec.Confidence,
		Context:    rec.Context,
		Metadata:   rec.Metadata,
		CreatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return &SerializationError{Operation: "marshal", Cause: err}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(memoryKey(stored.ID), data); err != nil {
			return err
		}
		return txn.Set(categoryIndexKey(stored.Category, stored.ID), []byte{})
	})
}

// Existing implements Loader.
func (s *LocalStore) Existing(ctx context.Context) ([]StoredMemory, error) {
	var memories []StoredMemory

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("memory:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if strings.HasPrefix(string(item.Key()), "memory:index:") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			err := item.Value(func(val []byte) error {
				var stored storedRecord
				if err := json.Unmarshal(val, &stored); err != nil {
					return &SerializationError{Operation: "unmarshal", Cause: err}
				}
				memories = append(memories, StoredMemory{ID: stored.ID, Memory: stored.Content})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memories, nil
}

// Delete implements Loader.
func (s *LocalStore) Delete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.deleteOne(id); err != nil {
			s.log.Error("failed to delete memory", "id", id, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *LocalStore) deleteOne(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(memoryKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return &NotFoundError{ID: id}
			}
			return err
		}

		var stored storedRecord
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
		if err != nil {
			return &SerializationError{Operation: "unmarshal", Cause: err}
		}

		if err := txn.Delete(memoryKey(id)); err != nil {
			return err
		}
		return txn.Delete(categoryIndexKey(stored.Category, id))
	})
}

// CountByCategory reports how many stored memories each category holds,
// read from the category index.
func (s *LocalStore) CountByCategory() (map[string]int, error) {
	counts := make(map[string]int)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("memory:index:category:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			category, _, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			counts[category]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Close implements Loader.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
