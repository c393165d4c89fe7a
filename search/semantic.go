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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for a semantic match.
const DefaultSimilarityThreshold = 0.7

// SemanticConfig configures a Semantic matcher. Zero values select defaults.
type SemanticConfig struct {
	Cache        EmbeddingCache
	PoolSize     int
	EmbedTimeout time.Duration
	Logger       *slog.Logger
}

// Semantic scores entries by embedding similarity to the query.
// It is inert when no embedder is configured.
type Semantic struct {
	embedder ai.Embedder
	cache    EmbeddingCache
	pool     *ants.Pool
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSemantic creates a semantic matcher. embedder may be nil.
func NewSemantic(embedder ai.Embedder, cfg SemanticConfig) (*Semantic, error) {
	if cfg.Cache == nil {
		cfg.Cache = NewMapCache()
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = runtime.NumCPU()
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = ai.DefaultEmbedTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "semantic-matcher")

	s := &Semantic{
		embedder: embedder,
		cache:    cfg.Cache,
		timeout:  cfg.EmbedTimeout,
		logger:   logger,
	}
	if embedder == nil {
		return s, nil
	}

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithPanicHandler(func(p any) {
		logger.Error("embedding worker panicked", "panic", p)
	}))
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Enabled reports whether an embedder is configured.
func (s *Semantic) Enabled() bool {
	return s.embedder != nil
}

// Release stops the worker pool and the cache.
func (s *Semantic) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
	s.cache.Close()
}

// entryText is the text embedded for an entry.
func entryText(entry *core.KnowledgeEntry) string {
	return strings.ToLower(strings.TrimSpace(entry.Question + " " + entry.Keywords))
}

// Match embeds the query and every entry and returns entries whose cosine
// similarity, scaled to 0-100, reaches threshold*100, highest first.
// An entry whose embedding fails scores 0 without affecting the others.
func (s *Semantic) Match(ctx context.Context, query string, entries []*core.KnowledgeEntry, threshold float64, limit int) []core.MatchCandidate {
	if !s.Enabled() || len(entries) == 0 {
		return []core.MatchCandidate{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	queryText := strings.ToLower(strings.TrimSpace(query))
	if queryText == "" {
		return []core.MatchCandidate{}
	}

	texts := make([]string, 0, len(entries)+1)
	texts = append(texts, queryText)
	for _, entry := range entries {
		texts = append(texts, entryText(entry))
	}

	vectors := s.embedAll(ctx, texts)
	queryVector := vectors[0]
	if len(queryVector) == 0 {
		s.logger.Debug("query embedding unavailable")
		return []core.MatchCandidate{}
	}

	minScore := int(math.Ceil(threshold*100 - 1e-9))
	results := make([]core.MatchCandidate, 0, len(entries))
	for i, entry := range entries {
		score := int(math.Round(cosineSimilarity(queryVector, vectors[i+1]) * 100))
		if score >= minScore && score > 0 {
			results = append(results, core.NewMatchCandidate(entry, score, core.SourceSemantic))
		}
	}

	return rankCandidates(results, limit)
}

// warmBatchSize caps the texts sent in one batch embedding request.
const warmBatchSize = 64

// Warm embeds every entry not already cached and returns how many entries
// have a cached embedding afterwards. Misses are fetched in batches; a
// failed batch falls back to one request per text.
func (s *Semantic) Warm(ctx context.Context, entries []*core.KnowledgeEntry) int {
	if !s.Enabled() {
		return 0
	}
	seen := make(map[string]bool, len(entries))
	var misses []string
	for _, entry := range entries {
		text := entryText(entry)
		if seen[text] {
			continue
		}
		seen[text] = true
		if _, ok := s.cache.Get(text); !ok {
			misses = append(misses, text)
		}
	}

	for start := 0; start < len(misses); start += warmBatchSize {
		batch := misses[start:min(start+warmBatchSize, len(misses))]
		if err := s.embedBatch(ctx, batch); err != nil {
			s.logger.Warn("batch embedding failed, embedding individually", "texts", len(batch), "err", err)
			s.embedAll(ctx, batch)
		}
	}

	cached := 0
	for _, entry := range entries {
		if _, ok := s.cache.Get(entryText(entry)); ok {
			cached++
		}
	}
	return cached
}

// embedBatch fetches embeddings for texts in one request under the
// per-call timeout and caches the non-empty ones.
func (s *Semantic) embedBatch(ctx context.Context, texts []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) > 0 {
			s.cache.Set(texts[i], vector)
		}
	}
	return nil
}

// embedAll resolves texts through the cache and fetches misses concurrently.
// The result has one vector per text; failed lookups are nil.
func (s *Semantic) embedAll(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	pending := make(map[string][]int)
	for i, text := range texts {
		if vector, ok := s.cache.Get(text); ok {
			vectors[i] = vector
			continue
		}
		pending[text] = append(pending[text], i)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for text, indexes := range pending {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			vector := s.embed(ctx, text)
			mu.Lock()
			for _, i := range indexes {
				vectors[i] = vector
			}
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("failed to schedule embedding", "err", err)
		}
	}
	wg.Wait()
	return vectors
}

// embed fetches one embedding under the per-call timeout and caches it on success.
func (s *Semantic) embed(ctx context.Context, text string) []float32 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Warn("embedding failed", "length", len(text), "err", err)
		return nil
	}
	if len(vector) == 0 {
		return nil
	}
	s.cache.Set(text, vector)
	return vector
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty or zero, or their lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp rounding error
	return math.Max(-1, math.Min(1, sim))
}
