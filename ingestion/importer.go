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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of entries written per repository call.
const DefaultBatchSize = 100

// Result summarizes an import.
type Result struct {
	Imported int
	Tenants  []string
	Invalid  []*EntryError
}

// Importer loads knowledge documents into a repository.
type Importer struct {
	repository storage.KnowledgeRepository
	batchSize  int
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// WithBatchSize sets how many entries are written per repository call.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = 1
		}
		im.batchSize = size
		return nil
	}
}

// WithProgress writes progress to w (typically os.Stderr).
// Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(im *Importer) error {
		im.progress = w
		return nil
	}
}

// NewImporter creates a new importer.
func NewImporter(repository storage.KnowledgeRepository, opts ...Option) (*Importer, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	im := &Importer{
		repository: repository,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(im); err != nil {
			return nil, err
		}
	}
	im.logger = im.logger.With("component", "importer")

	return im, nil
}

// ImportFile imports the YAML documents in path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import parses every YAML document in r, validates the entries and writes
// the valid ones in batches. Invalid entries are reported in the result.
// A repository failure stops the import; entries already written stay written.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	docs, err := decodeDocuments(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var valid []*core.KnowledgeEntry
	for di, doc := range docs {
		if err := core.ValidateTenant(doc.Tenant); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrMissingTenant, di+1, err)
		}
		result.Tenants = append(result.Tenants, doc.Tenant)

		language := doc.Language
		if language == "" {
			language = DefaultLanguage
		}
		for i := range doc.Entries {
			entry := doc.Entries[i].toEntry(doc.Tenant, language)
			if err := core.ValidateKnowledgeEntry(entry); err != nil {
				result.Invalid = append(result.Invalid, &EntryError{
					Document: di + 1,
					Index:    i + 1,
					Question: entry.Question,
					Err:      err,
				})
				continue
			}
			valid = append(valid, entry)
		}
	}

	for _, invalid := range result.Invalid {
		im.logger.Warn("skipping invalid entry", "err", invalid)
	}

	var tracker *ProgressTracker
	if im.progress != nil {
		tracker = NewProgressTracker(im.progress, len(valid), im.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	for start := 0; start < len(valid); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+im.batchSize, len(valid))
		if _, err := im.repository.AddEntries(ctx, valid[start:end]...); err != nil {
			im.logger.Error("error writing entries", "batch_start", start, "err", err)
			return result, err
		}
		result.Imported += end - start
		if tracker != nil {
			tracker.Increment(end - start)
		}
	}

	im.logger.Info("import finished", "imported", result.Imported, "invalid", len(result.Invalid))
	return result, nil
}

func decodeDocuments(r io.Reader) ([]Document, error) {
	decoder := yaml.NewDecoder(r)
	var docs []Document
	for {
		var doc Document
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
