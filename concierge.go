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

// Package concierge ties a knowledge store, an AI provider and the
// retrieval, import and reply components together.
package concierge

import (
	"log/slog"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ai/openai"
	"github.com/poiesic/concierge/ingestion"
	"github.com/poiesic/concierge/prompt"
	"github.com/poiesic/concierge/search"
	"github.com/poiesic/concierge/storage"
	"github.com/poiesic/concierge/storage/badger"
)

type Database struct {
	backend    *badger.Backend
	repository storage.KnowledgeRepository
	provider   ai.AIProvider
	aiConfig   *ai.Config
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration used to build the OpenAI provider.
// Its EmbedTimeout also bounds the searcher's embedding requests.
// A nil config falls back to ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps the badger store in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func applyOptions(opts []DatabaseOption) *databaseOptions {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.aiConfig == nil {
		options.aiConfig = ai.DefaultConfig()
	}
	options.aiConfig.Normalize()
	return options
}

// Open opens (or creates) a badger knowledge base at filePath.
func Open(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repository, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	db, err := newDatabase(repository, options)
	if err != nil {
		repository.Close()
		backend.Close()
		return nil, err
	}
	db.backend = backend
	return db, nil
}

// OpenWithRepository wraps an already opened repository, such as the
// postgres one. The Database takes ownership and closes it on Close.
func OpenWithRepository(repository storage.KnowledgeRepository, opts ...DatabaseOption) (*Database, error) {
	if repository == nil {
		return nil, search.ErrRepositoryRequired
	}
	return newDatabase(repository, applyOptions(opts))
}

func newDatabase(repository storage.KnowledgeRepository, options *databaseOptions) (*Database, error) {
	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	return &Database{
		repository: repository,
		provider:   provider,
		aiConfig:   options.aiConfig,
		logger:     options.logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.repository.Close(); err != nil {
		db.logger.Error("error closing knowledge repository", "err", err)
		return err
	}

	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

func (db *Database) Repository() storage.KnowledgeRepository {
	return db.repository
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewSearcher builds a searcher over the database. Embedding requests are
// bounded by the AI config's EmbedTimeout unless opts override it.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{
		search.WithLogger(db.logger),
		search.WithEmbedTimeout(db.aiConfig.EmbedTimeout),
	}, opts...)
	return search.NewSearcher(db.repository, db.provider, opts...)
}

func (db *Database) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewImporter(db.repository, opts...)
}

// NewAssembler builds a reply assembler over retriever using the provider's
// completion model, if one is configured.
func (db *Database) NewAssembler(retriever prompt.Retriever, opts ...prompt.Option) (*prompt.Assembler, error) {
	opts = append([]prompt.Option{prompt.WithLogger(db.logger)}, opts...)
	return prompt.NewAssembler(retriever, db.provider.Completer(), opts...)
}
