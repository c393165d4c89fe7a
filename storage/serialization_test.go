package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/concierge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.EntryID("grand-hotel", "en", "Is there parking?")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}

func TestMarshalUnmarshalEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.KnowledgeEntry{
		Id:         7,
		TenantID:   "grand-hotel",
		Question:   "Do you allow pets?",
		Answer:     "Dogs under 10kg are welcome.",
		Category:   "policies",
		Keywords:   "pets, dog, cat",
		Language:   "en",
		Priority:   3,
		IsActive:   true,
		UsageCount: 12,
		LastUsed:   now,
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalEntry(entry)
	decoded, err := UnmarshalEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestUnmarshalEntry_Invalid(t *testing.T) {
	_, err := UnmarshalEntry([]byte{0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}
