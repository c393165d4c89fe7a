package concierge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ai/mock"
	"github.com/poiesic/concierge/search"
	"github.com/poiesic/concierge/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "test_db")
		db, err := Open(dir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Repository())
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.backend)
		assert.Nil(t, db.Provider().Embedder(), "no API key means no embedder")
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		db, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("invalid AI config", func(t *testing.T) {
		config := &ai.Config{EmbeddingAPIKey: "key"}
		db, err := Open("", WithInMemory(), WithAIConfig(config))
		if err == nil {
			db.Close()
		}
		assert.Error(t, err)
	})

	t.Run("nil AI config uses defaults", func(t *testing.T) {
		db, err := Open("", WithInMemory(), WithAIConfig(nil))
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, ai.DefaultEmbedTimeout, db.aiConfig.EmbedTimeout)
		assert.Nil(t, db.Provider().Embedder())
	})
}

func TestOpenWithRepository(t *testing.T) {
	_, err := OpenWithRepository(nil)
	assert.ErrorIs(t, err, search.ErrRepositoryRequired)

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	db, err := OpenWithRepository(repo, WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.Same(t, repo, db.Repository())
	assert.NoError(t, db.Close())
}

func TestDatabase_ImportSearchReply(t *testing.T) {
	provider := mock.NewMockProvider()
	db, err := Open("", WithInMemory(), WithAIProvider(provider), WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	importer, err := db.NewImporter()
	require.NoError(t, err)
	result, err := importer.Import(ctx, strings.NewReader(`
tenant: grand-hotel
entries:
  - question: What time is check-in?
    answer: Check-in starts at 3pm.
    keywords: [checkin, arrival]
    priority: 2
`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	defer searcher.Close()
	assert.True(t, searcher.SemanticEnabled())

	results := searcher.Search(ctx, "grand-hotel", "what time is check-in", "en", 3)
	require.Len(t, results, 1)
	assert.GreaterOrEqual(t, results[0].Score, 60)

	assembler, err := db.NewAssembler(searcher)
	require.NoError(t, err)
	assert.True(t, assembler.CanReply())
}

func TestDatabase_Close(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_SearcherUsesConfiguredEmbedTimeout(t *testing.T) {
	var (
		mu     sync.Mutex
		budget []time.Duration
	)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if deadline, ok := ctx.Deadline(); ok {
			mu.Lock()
			budget = append(budget, time.Until(deadline))
			mu.Unlock()
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	provider := mock.NewMockProviderWithServices(embedder, nil)

	config := ai.NewConfig(ai.WithEmbedTimeout(50 * time.Millisecond))
	db, err := Open("", WithInMemory(), WithAIConfig(config), WithAIProvider(provider))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	importer, err := db.NewImporter()
	require.NoError(t, err)
	_, err = importer.Import(ctx, strings.NewReader(`
tenant: grand-hotel
entries:
  - {question: Is there parking?, answer: Valet parking is available.}
`))
	require.NoError(t, err)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	defer searcher.Close()

	start := time.Now()
	results := searcher.Search(ctx, "grand-hotel", "zzz qqq", "en", 3)
	assert.Empty(t, results)
	assert.Less(t, time.Since(start), time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, budget)
	for _, b := range budget {
		assert.LessOrEqual(t, b, 50*time.Millisecond)
	}
}
