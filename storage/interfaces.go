package storage

import (
	"context"

	"github.com/poiesic/concierge/core"
)

// KnowledgeRepository provides operations for managing tenant knowledge-base entries.
// Implementations must be thread-safe and support concurrent access.
//
// Entry IDs are unique within a tenant only; every lookup is keyed by
// tenant and ID.
type KnowledgeRepository interface {
	// AddEntries inserts or replaces one or more entries.
	// Entries with ID=0 get an ID derived from tenant, language and question.
	// Sets InsertedAt on new entries and UpdatedAt on every write.
	// Returns the entries with IDs and timestamps populated.
	AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error)

	// GetEntry retrieves a single entry of a tenant by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, tenantID string, id core.ID) (*core.KnowledgeEntry, error)

	// ListEntries retrieves every entry of a tenant, active or not, in all languages.
	ListEntries(ctx context.Context, tenantID string) ([]*core.KnowledgeEntry, error)

	// FetchActiveEntries retrieves the active entries of a tenant in one language,
	// ordered by priority descending, then usage count descending.
	// The ordering is a tie-stability hint for the matchers, not a correctness requirement.
	FetchActiveEntries(ctx context.Context, tenantID, language string) ([]*core.KnowledgeEntry, error)

	// IncrementUsage adds one to the entry's usage count and sets LastUsed to now.
	// Returns ErrNotFound if the entry doesn't exist.
	IncrementUsage(ctx context.Context, tenantID string, id core.ID) error

	// DeleteEntries removes entries of a tenant by their IDs.
	// Returns ErrNotFound if any entry doesn't exist.
	DeleteEntries(ctx context.Context, tenantID string, ids ...core.ID) error

	// Close releases resources held by the repository.
	Close() error
}
