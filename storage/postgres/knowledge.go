// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository on a pgx pool.
type KnowledgeRepository struct {
	pool *pgxpool.Pool
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository wraps an open pool. Close releases the pool.
func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{pool: pool}
}

// Close closes the underlying pool.
func (r *KnowledgeRepository) Close() error {
	r.pool.Close()
	return nil
}

// AddEntries upserts entries in a single transaction.
func (r *KnowledgeRepository) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error) {
	for _, entry := range entries {
		if err := core.ValidateKnowledgeEntry(entry); err != nil {
			return nil, err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, entry := range entries {
		if entry.Id == 0 {
			entry.Id = core.EntryID(entry.TenantID, entry.Language, entry.Question)
		}
		query, args, err := upsertEntryQuery(entry, now).ToSql()
		if err != nil {
			return nil, err
		}
		var lastUsed *time.Time
		if err := tx.QueryRow(ctx, query, args...).Scan(&entry.UsageCount, &lastUsed, &entry.InsertedAt); err != nil {
			return nil, err
		}
		entry.LastUsed = fromNullable(lastUsed)
		entry.InsertedAt = entry.InsertedAt.UTC()
		entry.UpdatedAt = now
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry retrieves a single entry of a tenant by ID.
func (r *KnowledgeRepository) GetEntry(ctx context.Context, tenantID string, id core.ID) (*core.KnowledgeEntry, error) {
	query, args, err := getEntryQuery(tenantID, id).ToSql()
	if err != nil {
		return nil, err
	}
	entry, err := scanEntry(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return entry, err
}

// ListEntries retrieves every entry of a tenant.
func (r *KnowledgeRepository) ListEntries(ctx context.Context, tenantID string) ([]*core.KnowledgeEntry, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	query, args, err := listEntriesQuery(tenantID).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryEntries(ctx, query, args)
}

// FetchActiveEntries retrieves active entries ordered by priority, then usage.
func (r *KnowledgeRepository) FetchActiveEntries(ctx context.Context, tenantID, language string) ([]*core.KnowledgeEntry, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	query, args, err := fetchActiveQuery(tenantID, language).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryEntries(ctx, query, args)
}

// IncrementUsage increments usage_count atomically in the database.
func (r *KnowledgeRepository) IncrementUsage(ctx context.Context, tenantID string, id core.ID) error {
	query, args, err := incrementUsageQuery(tenantID, id, time.Now().UTC()).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEntries removes entries; nothing is deleted if any ID is missing.
func (r *KnowledgeRepository) DeleteEntries(ctx context.Context, tenantID string, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[core.ID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	query, args, err := deleteEntriesQuery(tenantID, ids).ToSql()
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(len(unique)) {
		return storage.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *KnowledgeRepository) queryEntries(ctx context.Context, query string, args []any) ([]*core.KnowledgeEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.KnowledgeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// scanEntry reads one row in entryColumns order.
func scanEntry(row pgx.Row) (*core.KnowledgeEntry, error) {
	var (
		entry    core.KnowledgeEntry
		id       int64
		lastUsed *time.Time
	)
	err := row.Scan(
		&id, &entry.TenantID, &entry.Question, &entry.Answer, &entry.Category, &entry.Keywords,
		&entry.Language, &entry.Priority, &entry.IsActive, &entry.UsageCount, &lastUsed,
		&entry.InsertedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Id = core.ID(id)
	entry.LastUsed = fromNullable(lastUsed)
	entry.InsertedAt = entry.InsertedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return &entry, nil
}

func fromNullable(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
