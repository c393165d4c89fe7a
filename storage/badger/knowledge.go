package badger

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository using BadgerDB.
type KnowledgeRepository struct {
	backend *Backend
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (*KnowledgeRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &KnowledgeRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *KnowledgeRepository) Close() error {
	return nil
}

// AddEntries inserts or replaces knowledge entries.
// Entries without an ID get one derived from tenant, language and question.
// Replacing an entry keeps its InsertedAt and usage telemetry.
func (r *KnowledgeRepository) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error) {
	for _, entry := range entries {
		if err := core.ValidateKnowledgeEntry(entry); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, entry := range entries {
			if entry.Id == 0 {
				entry.Id = core.EntryID(entry.TenantID, entry.Language, entry.Question)
			}
			key := makeEntryKey(entry.TenantID, entry.Id)

			old, err := r.readEntry(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				entry.InsertedAt = old.InsertedAt
				entry.UsageCount = old.UsageCount
				entry.LastUsed = old.LastUsed
				// Language may have changed
				if err := tx.Delete(makeEntryIndexKey(old)); err != nil {
					return err
				}
			} else {
				entry.InsertedAt = now
			}
			entry.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
				return err
			}
			if err := tx.Set(makeEntryIndexKey(entry), storage.MarshalID(entry.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry retrieves a single entry of a tenant by ID.
func (r *KnowledgeRepository) GetEntry(ctx context.Context, tenantID string, id core.ID) (*core.KnowledgeEntry, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	var result *core.KnowledgeEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readEntry(tx, makeEntryKey(tenantID, id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListEntries retrieves every entry of a tenant, ordered by language then ID.
func (r *KnowledgeRepository) ListEntries(ctx context.Context, tenantID string) ([]*core.KnowledgeEntry, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	return r.scanIndex(ctx, tenantID, makeTenantPrefix(tenantID), false)
}

// FetchActiveEntries retrieves the active entries of a tenant in one language,
// ordered by priority descending, then usage count descending.
func (r *KnowledgeRepository) FetchActiveEntries(ctx context.Context, tenantID, language string) ([]*core.KnowledgeEntry, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	entries, err := r.scanIndex(ctx, tenantID, makeLanguagePrefix(tenantID, language), true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].UsageCount > entries[j].UsageCount
	})
	return entries, nil
}

// IncrementUsage adds one to the entry's usage count and stamps LastUsed.
// Concurrent increments of the same entry are retried on conflict so none are lost.
func (r *KnowledgeRepository) IncrementUsage(ctx context.Context, tenantID string, id core.ID) error {
	if err := core.ValidateTenant(tenantID); err != nil {
		return err
	}
	key := makeEntryKey(tenantID, id)
	return r.backend.WithRetryingTx(ctx, func(tx *badger.Txn) error {
		entry, err := r.readEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}
		entry.UsageCount++
		entry.LastUsed = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// DeleteEntries removes entries of a tenant by their IDs.
func (r *KnowledgeRepository) DeleteEntries(ctx context.Context, tenantID string, ids ...core.ID) error {
	if err := core.ValidateTenant(tenantID); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntryKey(tenantID, id)

			entry, err := r.readEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeEntryIndexKey(entry)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// scanIndex walks index keys under prefix and loads the referenced entries of tenantID.
func (r *KnowledgeRepository) scanIndex(ctx context.Context, tenantID string, prefix []byte, activeOnly bool) ([]*core.KnowledgeEntry, error) {
	var results []*core.KnowledgeEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if !bytes.HasPrefix(item.Key(), prefix) {
				break
			}

			var id core.ID
			err := item.Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			entry, err := r.readEntry(tx, makeEntryKey(tenantID, id))
			if err != nil {
				return err
			}
			if entry == nil {
				// Dangling index key
				continue
			}
			if activeOnly && !entry.IsActive {
				continue
			}
			results = append(results, entry)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// readEntry reads and deserializes an entry from the database.
// Returns nil if the key doesn't exist.
func (r *KnowledgeRepository) readEntry(tx *badger.Txn, key []byte) (*core.KnowledgeEntry, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry *core.KnowledgeEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalEntry(val)
		return err
	})
	return entry, err
}
