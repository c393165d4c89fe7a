package badger

import (
	"encoding/binary"

	"github.com/poiesic/concierge/core"
)

// Key prefixes for different data types
const (
	entryPrefix      = "kbent"
	entryIndexPrefix = "kbidx"
	keySeparator     = 0x00
)

// makeEntryKey generates the primary key of a tenant's entry.
// Format: prefix:tenant\x00id
func makeEntryKey(tenantID string, id core.ID) []byte {
	buf := make([]byte, 0, len(entryPrefix)+len(tenantID)+10)
	buf = append(buf, entryPrefix...)
	buf = append(buf, ':')
	buf = append(buf, tenantID...)
	buf = append(buf, keySeparator)
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeTenantPrefix generates the index prefix covering every entry of a tenant.
// Format: prefix:tenant\x00
func makeTenantPrefix(tenantID string) []byte {
	buf := make([]byte, 0, len(entryIndexPrefix)+len(tenantID)+2)
	buf = append(buf, entryIndexPrefix...)
	buf = append(buf, ':')
	buf = append(buf, tenantID...)
	return append(buf, keySeparator)
}

// makeLanguagePrefix generates the index prefix covering one tenant and language.
// Format: prefix:tenant\x00language\x00
func makeLanguagePrefix(tenantID, language string) []byte {
	buf := makeTenantPrefix(tenantID)
	buf = append(buf, language...)
	return append(buf, keySeparator)
}

// makeEntryIndexKey generates the composite index key for an entry.
// Format: prefix:tenant\x00language\x00id
func makeEntryIndexKey(entry *core.KnowledgeEntry) []byte {
	prefix := makeLanguagePrefix(entry.TenantID, entry.Language)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entry.Id))
	return buf
}
