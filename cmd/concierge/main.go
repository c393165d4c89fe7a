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
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ingestion"
	"github.com/poiesic/concierge/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadEnvFile(os.Getenv("CONCIERGE_ENV_FILE")); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnvFile reads variables from path, or ./.env when path is empty.
// A missing default file is not an error. Variables already set in the
// environment win.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "concierge",
		Usage: "Knowledge base retrieval for hospitality chat assistants",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"CONCIERGE_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import knowledge entries from YAML files",
				ArgsUsage: "FILE...",
				Action:    importCommand,
				Flags: withCommonFlags(
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries written per transaction",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print import progress to stderr",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search a tenant's knowledge base",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: withCommonFlags(
					tenantFlag(),
					languageFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: search.DefaultLimit,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Log every search stage",
					},
				),
			},
			{
				Name:   "list",
				Usage:  "List a tenant's knowledge entries",
				Action: listCommand,
				Flags: withCommonFlags(
					tenantFlag(),
					&cli.StringFlag{
						Name:  "language",
						Usage: "Only list entries in this language",
					},
				),
			},
			{
				Name:   "serve",
				Usage:  "Serve search and chat over HTTP",
				Action: serveCommand,
				Flags: withCommonFlags(
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8080",
						EnvVars: []string{"CONCIERGE_ADDR"},
					},
					&cli.StringSliceFlag{
						Name:  "warm",
						Usage: "Pre-compute embeddings for TENANT or TENANT:LANGUAGE at startup",
					},
					&cli.Int64Flag{
						Name:  "cache-size",
						Usage: "Maximum number of cached embeddings",
						Value: 10000,
					},
				),
			},
		},
	}
}

func tenantFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "Tenant identifier",
		Required: true,
	}
}

func languageFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "language",
		Usage: "Language code",
		Value: ingestion.DefaultLanguage,
	}
}

// withCommonFlags appends the store and AI flags every command accepts.
func withCommonFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./concierge_db",
			EnvVars: []string{"CONCIERGE_DB"},
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "PostgreSQL connection string; overrides --db",
			EnvVars: []string{"CONCIERGE_POSTGRES_DSN"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for embeddings and completions; semantic matching is disabled without one",
			EnvVars: []string{"CONCIERGE_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   ai.DefaultHost,
			EnvVars: []string{"CONCIERGE_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   ai.DefaultEmbeddingModel,
			EnvVars: []string{"CONCIERGE_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "completion-host",
			Usage:   "Chat completion service host URL",
			Value:   ai.DefaultHost,
			EnvVars: []string{"CONCIERGE_COMPLETION_HOST"},
		},
		&cli.StringFlag{
			Name:    "completion-model",
			Usage:   "Chat completion model name",
			Value:   ai.DefaultCompletionModel,
			EnvVars: []string{"CONCIERGE_COMPLETION_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "embed-timeout",
			Usage:   "Timeout for a single embedding request",
			Value:   ai.DefaultEmbedTimeout,
			EnvVars: []string{"CONCIERGE_EMBED_TIMEOUT"},
		},
	)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
