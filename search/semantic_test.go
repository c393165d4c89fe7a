package search

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/concierge/ai/mock"
	"github.com/poiesic/concierge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parkQuery = "where do i park"

var (
	parkingEntry   = entry(1, "Is there parking?", "parking, car", 0)
	breakfastEntry = entry(2, "What time is breakfast?", "breakfast", 0)
)

// vectorEmbedder returns fixed vectors per text and an unrelated vector otherwise.
func vectorEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return []float32{0, 0, 1}, nil
	}
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i], _ = m.EmbedTextFunc(ctx, text)
		}
		return out, nil
	}
	return m
}

func parkingVectors() map[string][]float32 {
	return map[string][]float32{
		parkQuery:                           {1, 0, 0},
		"is there parking? parking, car":    {0.9, 0.1, 0},
		"what time is breakfast? breakfast": {0, 1, 0},
	}
}

func newTestSemantic(t *testing.T, embedder *mock.MockEmbedder, cfg SemanticConfig) *Semantic {
	t.Helper()
	var s *Semantic
	var err error
	if embedder == nil {
		s, err = NewSemantic(nil, cfg)
	} else {
		s, err = NewSemantic(embedder, cfg)
	}
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"general", []float32{0.6, 0.8}, []float32{0.8, 0.6}, 0.96},
		{"empty", []float32{}, []float32{}, 0},
		{"one empty", []float32{1, 0}, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	texts := []string{"parking", "breakfast", "spa", "late checkout", "wifi"}
	for _, a := range texts {
		for _, b := range texts {
			sim := cosineSimilarity(mock.DeterministicVector(a, 64), mock.DeterministicVector(b, 64))
			assert.GreaterOrEqual(t, sim, -1.0)
			assert.LessOrEqual(t, sim, 1.0)
		}
	}
}

func TestSemantic_InertWithoutEmbedder(t *testing.T) {
	s := newTestSemantic(t, nil, SemanticConfig{})
	assert.False(t, s.Enabled())

	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, s.Warm(context.Background(), []*core.KnowledgeEntry{parkingEntry}))
}

func TestSemantic_Match(t *testing.T) {
	embedder := vectorEmbedder(parkingVectors())
	s := newTestSemantic(t, embedder, SemanticConfig{})

	results := s.Match(context.Background(), "  Where do I park ", []*core.KnowledgeEntry{breakfastEntry, parkingEntry}, 0.7, 3)
	require.Len(t, results, 1)
	assert.Equal(t, parkingEntry.Id, results[0].EntryID)
	assert.Equal(t, 99, results[0].Score)
	assert.Equal(t, core.SourceSemantic, results[0].Source)
	assert.Equal(t, parkingEntry.Answer, results[0].Answer)
}

func TestSemantic_ThresholdIsInclusive(t *testing.T) {
	vectors := map[string][]float32{
		parkQuery:                        {1, 0},
		"is there parking? parking, car": {0.7, float32(math.Sqrt(0.51))},
	}
	s := newTestSemantic(t, vectorEmbedder(vectors), SemanticConfig{})

	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)
	require.Len(t, results, 1)
	assert.Equal(t, 70, results[0].Score)

	results = s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.71, 3)
	assert.Empty(t, results)
}

func TestSemantic_PerItemFailureIsolated(t *testing.T) {
	vectors := parkingVectors()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "what time is breakfast? breakfast" {
			return nil, errors.New("rate limited")
		}
		return vectors[text], nil
	}
	s := newTestSemantic(t, embedder, SemanticConfig{})

	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{breakfastEntry, parkingEntry}, 0.0, 3)
	require.Len(t, results, 1)
	assert.Equal(t, parkingEntry.Id, results[0].EntryID)
}

func TestSemantic_QueryFailureYieldsNothing(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == parkQuery {
			return nil, errors.New("unavailable")
		}
		return []float32{1, 0}, nil
	}
	s := newTestSemantic(t, embedder, SemanticConfig{})

	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)
	assert.Empty(t, results)
}

func TestSemantic_CacheReuse(t *testing.T) {
	embedder := vectorEmbedder(parkingVectors())
	s := newTestSemantic(t, embedder, SemanticConfig{})
	entries := []*core.KnowledgeEntry{parkingEntry, breakfastEntry}

	first := s.Match(context.Background(), parkQuery, entries, 0.7, 3)
	second := s.Match(context.Background(), parkQuery, entries, 0.7, 3)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.CallsFor(parkQuery))
	assert.Equal(t, 1, embedder.CallsFor("is there parking? parking, car"))
	assert.Equal(t, 3, embedder.CallCount())
}

func TestSemantic_FailuresNotCached(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == parkQuery {
			return []float32{1, 0}, nil
		}
		return nil, errors.New("boom")
	}
	s := newTestSemantic(t, embedder, SemanticConfig{})

	s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)
	s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)

	assert.Equal(t, 2, embedder.CallsFor("is there parking? parking, car"))
	assert.Equal(t, 1, embedder.CallsFor(parkQuery))
}

func TestSemantic_DuplicateTextsEmbeddedOnce(t *testing.T) {
	embedder := vectorEmbedder(parkingVectors())
	s := newTestSemantic(t, embedder, SemanticConfig{})

	twin := entry(9, "Is there parking?", "parking, car", 0)
	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry, twin}, 0.7, 3)

	assert.Len(t, results, 2)
	assert.Equal(t, 1, embedder.CallsFor("is there parking? parking, car"))
}

func TestSemantic_Timeout(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := newTestSemantic(t, embedder, SemanticConfig{EmbedTimeout: 20 * time.Millisecond})

	start := time.Now()
	results := s.Match(context.Background(), parkQuery, []*core.KnowledgeEntry{parkingEntry}, 0.7, 3)
	assert.Empty(t, results)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSemantic_Warm(t *testing.T) {
	embedder := vectorEmbedder(parkingVectors())
	s := newTestSemantic(t, embedder, SemanticConfig{Cache: NewMapCache()})
	entries := []*core.KnowledgeEntry{parkingEntry, breakfastEntry}

	assert.Equal(t, 2, s.Warm(context.Background(), entries))
	assert.Equal(t, 2, embedder.CallCount())

	s.Match(context.Background(), parkQuery, entries, 0.7, 3)
	assert.Equal(t, 3, embedder.CallCount())
}

func TestSemantic_WarmBatchesMisses(t *testing.T) {
	vectors := parkingVectors()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vectors[text], nil
	}
	var batches [][]string
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		batches = append(batches, texts)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = vectors[text]
		}
		return out, nil
	}
	cache := NewMapCache()
	cache.Set("is there parking? parking, car", vectors["is there parking? parking, car"])
	s := newTestSemantic(t, embedder, SemanticConfig{Cache: cache})

	twin := entry(9, "What time is breakfast?", "breakfast", 0)
	warmed := s.Warm(context.Background(), []*core.KnowledgeEntry{parkingEntry, breakfastEntry, twin})
	assert.Equal(t, 3, warmed)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"what time is breakfast? breakfast"}, batches[0])

	assert.Equal(t, 3, s.Warm(context.Background(), []*core.KnowledgeEntry{parkingEntry, breakfastEntry, twin}))
	assert.Len(t, batches, 1)
}

func TestSemantic_WarmBatchFailureFallsBack(t *testing.T) {
	vectors := parkingVectors()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "what time is breakfast? breakfast" {
			return nil, errors.New("rate limited")
		}
		return vectors[text], nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch too large")
	}
	s := newTestSemantic(t, embedder, SemanticConfig{})

	warmed := s.Warm(context.Background(), []*core.KnowledgeEntry{parkingEntry, breakfastEntry})
	assert.Equal(t, 1, warmed)
	assert.Equal(t, 2, embedder.CallsFor("is there parking? parking, car"))
}

func TestSemantic_Limit(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	s := newTestSemantic(t, embedder, SemanticConfig{PoolSize: 2})

	entries := make([]*core.KnowledgeEntry, 10)
	for i := range entries {
		entries[i] = entry(core.ID(i+1), "question", string(rune('a'+i)), 0)
	}

	results := s.Match(context.Background(), parkQuery, entries, 0.7, 4)
	assert.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, 100, r.Score)
	}
}
