package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// Searcher finds knowledge entries answering a guest query.
type Searcher struct {
	repository   storage.KnowledgeRepository
	semantic     *Semantic
	threshold    float64
	defaultLimit int
	embedTimeout time.Duration
	poolSize     int
	cache        EmbeddingCache
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSimilarityThreshold sets the minimum cosine similarity for semantic matches.
// Default is 0.7.
func WithSimilarityThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		s.threshold = threshold
		return nil
	}
}

// WithDefaultLimit sets the number of results returned when a caller passes 0.
// Default is 3.
func WithDefaultLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
		}
		s.defaultLimit = limit
		return nil
	}
}

// WithEmbedTimeout bounds each embedding request.
// Default is 5s.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		s.embedTimeout = timeout
		return nil
	}
}

// WithPoolSize sets the number of concurrent embedding requests.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		s.poolSize = size
		return nil
	}
}

// WithCache sets the embedding cache. Default is an unbounded map cache.
// Sharing one cache between searchers shares embeddings between them.
func WithCache(cache EmbeddingCache) Option {
	return func(s *Searcher) error {
		s.cache = cache
		return nil
	}
}

// NewSearcher creates a new searcher. Semantic matching is enabled only when
// the provider has an embedder.
func NewSearcher(repository storage.KnowledgeRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository:   repository,
		threshold:    DefaultSimilarityThreshold,
		defaultLimit: DefaultLimit,
		embedTimeout: ai.DefaultEmbedTimeout,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	semantic, err := NewSemantic(provider.Embedder(), SemanticConfig{
		Cache:        s.cache,
		PoolSize:     s.poolSize,
		EmbedTimeout: s.embedTimeout,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.semantic = semantic

	if !semantic.Enabled() {
		s.logger.Info("no embedder configured, using lexical matching only")
	}

	return s, nil
}

// Close releases the embedding worker pool.
func (s *Searcher) Close() error {
	s.semantic.Release()
	return nil
}

// Search returns up to limit entries answering query for one tenant and language.
// It never fails: any internal error yields an empty result.
func (s *Searcher) Search(ctx context.Context, tenantID, query, language string, limit int) []core.MatchCandidate {
	return s.SearchWithMonitor(ctx, tenantID, query, language, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, tenantID, query, language string, limit int, monitor SearchMonitor) (results []core.MatchCandidate) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", "tenant", tenantID, "panic", r)
			results = []core.MatchCandidate{}
		}
	}()

	monitor.Start(tenantID, query)
	results = s.search(ctx, tenantID, query, language, limit, monitor)
	monitor.Finish(results)
	return results
}

func (s *Searcher) search(ctx context.Context, tenantID, query, language string, limit int, monitor SearchMonitor) []core.MatchCandidate {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if strings.TrimSpace(query) == "" {
		return []core.MatchCandidate{}
	}

	entries, err := s.repository.FetchActiveEntries(ctx, tenantID, language)
	if err != nil {
		s.logger.Error("error fetching knowledge entries", "tenant", tenantID, "language", language, "err", err)
		return []core.MatchCandidate{}
	}
	monitor.AfterFetch(entries)
	if len(entries) == 0 {
		return []core.MatchCandidate{}
	}

	results := MatchLexical(entries, query, limit)
	monitor.AfterLexical(results)

	if Insufficient(results) && s.semantic.Enabled() {
		semantic := s.semantic.Match(ctx, query, entries, s.threshold, limit)
		monitor.AfterSemantic(semantic)
		if len(semantic) > 0 && (len(results) == 0 || semantic[0].Score > results[0].Score) {
			results = semantic
		}
	}

	s.recordUsage(ctx, tenantID, results, monitor)
	return results
}

// recordUsage credits the winning entry when the match is confident.
func (s *Searcher) recordUsage(ctx context.Context, tenantID string, results []core.MatchCandidate, monitor SearchMonitor) {
	if len(results) == 0 || results[0].Score <= sufficientScore {
		return
	}
	id := results[0].EntryID
	err := s.repository.IncrementUsage(ctx, tenantID, id)
	if err != nil {
		s.logger.Warn("failed to record entry usage", "tenant", tenantID, "id", id, "err", err)
	}
	monitor.UsageRecorded(id, err)
}

// Warm pre-computes embeddings for a tenant's active entries so the first
// semantic search does not pay for them. Returns the number of entries
// with a cached embedding.
func (s *Searcher) Warm(ctx context.Context, tenantID, language string) (int, error) {
	if !s.semantic.Enabled() {
		return 0, nil
	}
	entries, err := s.repository.FetchActiveEntries(ctx, tenantID, language)
	if err != nil {
		return 0, err
	}
	warmed := s.semantic.Warm(ctx, entries)
	s.logger.Info("warmed embedding cache", "tenant", tenantID, "language", language,
		"entries", len(entries), "cached", warmed)
	return warmed, nil
}

// SemanticEnabled reports whether the semantic matcher is active.
func (s *Searcher) SemanticEnabled() bool {
	return s.semantic.Enabled()
}
