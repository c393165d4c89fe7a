package ingestion

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
	"github.com/poiesic/concierge/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotelYAML = `
tenant: grand-hotel
language: en
entries:
  - question: What time is check-in?
    answer: Check-in starts at 3pm.
    category: arrival
    keywords: [checkin, arrival]
    priority: 2
  - question: Is there parking?
    answer: Valet parking is available.
    keywords: parking, garage
    priority: 5
  - question: Wo ist das Frühstück?
    answer: Im Erdgeschoss.
    language: DE
  - question: Old pool hours
    answer: Closed.
    active: false
`

func setupRepo(t *testing.T) storage.KnowledgeRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func TestImport(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	im, err := NewImporter(repo)
	require.NoError(t, err)

	result, err := im.Import(ctx, strings.NewReader(hotelYAML))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Imported)
	assert.Empty(t, result.Invalid)
	assert.Equal(t, []string{"grand-hotel"}, result.Tenants)

	english, err := repo.FetchActiveEntries(ctx, "grand-hotel", "en")
	require.NoError(t, err)
	require.Len(t, english, 2)
	assert.Equal(t, "Is there parking?", english[0].Question)
	assert.Equal(t, "parking, garage", english[0].Keywords)
	assert.Equal(t, "checkin, arrival", english[1].Keywords)
	assert.Equal(t, "arrival", english[1].Category)

	german, err := repo.FetchActiveEntries(ctx, "grand-hotel", "de")
	require.NoError(t, err)
	assert.Len(t, german, 1)

	all, err := repo.ListEntries(ctx, "grand-hotel")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestImport_ReimportUpdates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	im, err := NewImporter(repo)
	require.NoError(t, err)

	_, err = im.Import(ctx, strings.NewReader(hotelYAML))
	require.NoError(t, err)

	updated := strings.Replace(hotelYAML, "Valet parking is available.", "Parking costs 20 EUR.", 1)
	_, err = im.Import(ctx, strings.NewReader(updated))
	require.NoError(t, err)

	all, err := repo.ListEntries(ctx, "grand-hotel")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := repo.GetEntry(ctx, "grand-hotel", core.EntryID("grand-hotel", "en", "Is there parking?"))
	require.NoError(t, err)
	assert.Equal(t, "Parking costs 20 EUR.", got.Answer)
}

func TestImport_InvalidEntriesReported(t *testing.T) {
	repo := setupRepo(t)
	im, err := NewImporter(repo)
	require.NoError(t, err)

	doc := `
tenant: grand-hotel
entries:
  - question: Is there a gym?
    answer: Yes, open 24 hours.
  - question: ""
    answer: orphan answer
  - question: Spa?
    answer: Yes.
    priority: 11
`
	result, err := im.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Invalid, 2)
	assert.Equal(t, 2, result.Invalid[0].Index)
	assert.ErrorIs(t, result.Invalid[0], core.ErrEmptyQuestion)
	assert.ErrorIs(t, result.Invalid[1], core.ErrInvalidPriority)
	assert.Contains(t, result.Invalid[1].Error(), `"Spa?"`)
}

func TestImport_MultipleDocuments(t *testing.T) {
	repo := setupRepo(t)
	im, err := NewImporter(repo, WithBatchSize(1))
	require.NoError(t, err)

	doc := `
tenant: grand-hotel
entries:
  - {question: Pets?, answer: Dogs welcome.}
---
tenant: seaside-inn
language: fr
entries:
  - {question: Animaux?, answer: Non.}
  - {question: Piscine?, answer: Oui.}
`
	result, err := im.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, []string{"grand-hotel", "seaside-inn"}, result.Tenants)

	french, err := repo.FetchActiveEntries(context.Background(), "seaside-inn", "fr")
	require.NoError(t, err)
	assert.Len(t, french, 2)
}

func TestImport_ExplicitIDsPerTenant(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	im, err := NewImporter(repo)
	require.NoError(t, err)

	doc := `
tenant: hotel-a
entries:
  - {id: 1, question: Is there parking?, answer: Garage on level -1.}
---
tenant: hotel-b
entries:
  - {id: 1, question: Is there parking?, answer: Street parking only.}
`
	result, err := im.Import(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	a, err := repo.FetchActiveEntries(ctx, "hotel-a", "en")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "Garage on level -1.", a[0].Answer)

	b, err := repo.FetchActiveEntries(ctx, "hotel-b", "en")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "Street parking only.", b[0].Answer)
}

func TestImport_DocumentErrors(t *testing.T) {
	im, err := NewImporter(setupRepo(t))
	require.NoError(t, err)

	_, err = im.Import(context.Background(), strings.NewReader("entries: [{question: q, answer: a}]"))
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = im.Import(context.Background(), strings.NewReader("tenant: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = im.Import(context.Background(), strings.NewReader("tenant: t\nentries:\n  - question: q\n    keywords: {a: b}\n"))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

type failingRepository struct {
	storage.KnowledgeRepository
	calls int
}

func (f *failingRepository) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error) {
	f.calls++
	if f.calls > 1 {
		return nil, errors.New("disk full")
	}
	return entries, nil
}

func TestImport_RepositoryFailureStops(t *testing.T) {
	repo := &failingRepository{}
	im, err := NewImporter(repo, WithBatchSize(2))
	require.NoError(t, err)

	result, err := im.Import(context.Background(), strings.NewReader(hotelYAML))
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Imported)
}

func TestImportFile_WithProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hotelYAML), 0644))

	var progress bytes.Buffer
	im, err := NewImporter(setupRepo(t), WithProgress(&progress), WithLogger(nil))
	require.NoError(t, err)

	result, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Imported)
	assert.Contains(t, progress.String(), "4/4")

	_, err = im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewImporter_RequiresRepository(t *testing.T) {
	_, err := NewImporter(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}
