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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/concierge"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/api"
	"github.com/poiesic/concierge/ingestion"
	"github.com/poiesic/concierge/search"
	"github.com/poiesic/concierge/storage/postgres"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func aiConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionHost(c.String("completion-host")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithEmbedTimeout(c.Duration("embed-timeout")),
	)
}

// openDatabase opens postgres when a DSN is given and badger otherwise.
func openDatabase(c *cli.Context) (*concierge.Database, error) {
	config := aiConfig(c)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	opts := []concierge.DatabaseOption{
		concierge.WithAIConfig(config),
		concierge.WithLogger(slog.Default()),
	}

	if dsn := c.String("postgres-dsn"); dsn != "" {
		pool, err := postgres.Open(c.Context, dsn, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := postgres.EnsureSchema(c.Context, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		db, err := concierge.OpenWithRepository(postgres.NewKnowledgeRepository(pool), opts...)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return db, nil
	}

	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := concierge.Open(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func importCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one file is required")
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []ingestion.Option{ingestion.WithBatchSize(c.Int("batch-size"))}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(os.Stderr))
	}
	importer, err := db.NewImporter(opts...)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, file := range files {
		result, err := importer.ImportFile(c.Context, file)
		if err != nil {
			return fmt.Errorf("import of %s failed: %w", file, err)
		}
		fmt.Fprintf(w, "%s: imported %d entries for %s\n", file, result.Imported, strings.Join(result.Tenants, ", "))
		for _, invalid := range result.Invalid {
			fmt.Fprintf(w, "  skipped %v\n", invalid)
		}
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	defer searcher.Close()

	var monitor search.SearchMonitor
	if c.Bool("explain") {
		monitor = search.NewLogMonitor(slog.Default())
	}
	results := searcher.SearchWithMonitor(c.Context, c.String("tenant"), query, normalizeLanguage(c.String("language")), c.Int("limit"), monitor)

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d matches\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(w, "%d: %q (%s %d)\n   %s\n", i+1, hit.Question, hit.Source, hit.Score, hit.Answer)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.Repository().ListEntries(c.Context, c.String("tenant"))
	if err != nil {
		return err
	}

	language := strings.ToLower(c.String("language"))
	w := c.App.Writer
	for _, entry := range entries {
		if language != "" && entry.Language != language {
			continue
		}
		state := "active"
		if !entry.IsActive {
			state = "inactive"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\tpriority=%d\tused=%d\t%s\n",
			entry.Id, entry.Language, state, entry.Priority, entry.UsageCount, entry.Question)
	}
	return nil
}

// parseWarmTarget splits TENANT[:LANGUAGE].
// normalizeLanguage lower-cases a language code, defaulting blanks.
func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return ingestion.DefaultLanguage
	}
	return language
}

func parseWarmTarget(target string) (tenant, language string) {
	tenant, language, _ = strings.Cut(target, ":")
	return tenant, normalizeLanguage(language)
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := search.NewBoundedCache(c.Int64("cache-size"))
	if err != nil {
		return err
	}

	// The searcher closes the cache on Close.
	searcher, err := db.NewSearcher(search.WithCache(cache))
	if err != nil {
		cache.Close()
		return err
	}
	defer searcher.Close()

	assembler, err := db.NewAssembler(searcher)
	if err != nil {
		return err
	}

	server, err := api.NewServer(searcher, db.Repository(), assembler, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, target := range c.StringSlice("warm") {
		tenant, language := parseWarmTarget(target)
		if _, err := searcher.Warm(ctx, tenant, language); err != nil {
			slog.Warn("failed to warm embedding cache", "tenant", tenant, "language", language, "err", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(c.String("addr"))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
