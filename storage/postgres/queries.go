package postgres

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/poiesic/concierge/core"
)

const tableName = "knowledge_base_items"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var entryColumns = []string{
	"id", "tenant_id", "question", "answer", "category", "keywords", "language",
	"priority", "is_active", "usage_count", "last_used", "inserted_at", "updated_at",
}

// upsertEntryQuery inserts an entry or replaces its content, keeping
// inserted_at and usage telemetry of an existing row.
func upsertEntryQuery(entry *core.KnowledgeEntry, now time.Time) sq.InsertBuilder {
	return psql.Insert(tableName).
		Columns(entryColumns...).
		Values(
			int64(entry.Id), entry.TenantID, entry.Question, entry.Answer, entry.Category,
			entry.Keywords, entry.Language, entry.Priority, entry.IsActive, int64(0), nil, now, now,
		).
		Suffix(`ON CONFLICT (tenant_id, id) DO UPDATE SET
	question = EXCLUDED.question,
	answer = EXCLUDED.answer,
	category = EXCLUDED.category,
	keywords = EXCLUDED.keywords,
	language = EXCLUDED.language,
	priority = EXCLUDED.priority,
	is_active = EXCLUDED.is_active,
	updated_at = EXCLUDED.updated_at
RETURNING usage_count, last_used, inserted_at`)
}

func selectEntries() sq.SelectBuilder {
	return psql.Select(entryColumns...).From(tableName)
}

func getEntryQuery(tenantID string, id core.ID) sq.SelectBuilder {
	return selectEntries().Where(sq.Eq{"tenant_id": tenantID, "id": int64(id)})
}

func listEntriesQuery(tenantID string) sq.SelectBuilder {
	return selectEntries().
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("language", "id")
}

func fetchActiveQuery(tenantID, language string) sq.SelectBuilder {
	return selectEntries().
		Where(sq.Eq{"tenant_id": tenantID, "language": language, "is_active": true}).
		OrderBy("priority DESC", "usage_count DESC")
}

func incrementUsageQuery(tenantID string, id core.ID, now time.Time) sq.UpdateBuilder {
	return psql.Update(tableName).
		Set("usage_count", sq.Expr("usage_count + 1")).
		Set("last_used", now).
		Where(sq.Eq{"tenant_id": tenantID, "id": int64(id)})
}

func deleteEntriesQuery(tenantID string, ids []core.ID) sq.DeleteBuilder {
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	return psql.Delete(tableName).Where(sq.Eq{"tenant_id": tenantID, "id": keys})
}
