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

package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/prompt"
	"github.com/poiesic/concierge/storage"
)

const defaultLanguage = "en"

// Searcher retrieves ranked knowledge entries for a query.
type Searcher interface {
	Search(ctx context.Context, tenantID, query, language string, limit int) []core.MatchCandidate
}

// Server is the HTTP front end for a concierge knowledge base.
type Server struct {
	app        *fiber.App
	searcher   Searcher
	repository storage.KnowledgeRepository
	assembler  *prompt.Assembler
	logger     *slog.Logger
}

// NewServer builds the fiber app and registers all routes. assembler may be
// nil, in which case chat requests are refused with 503.
func NewServer(searcher Searcher, repository storage.KnowledgeRepository, assembler *prompt.Assembler, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher:   searcher,
		repository: repository,
		assembler:  assembler,
		logger:     logger.With("component", "api"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "concierge",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.logRequests)
	s.app.Use(recover.New())

	s.app.Get("/healthz", s.health)

	tenants := s.app.Group("/api/v1/tenants/:tenant")
	tenants.Post("/search", s.search)
	tenants.Get("/entries", s.listEntries)
	tenants.Post("/chat", s.chat)

	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// logRequests renders chain errors itself so the logged status is final.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return nil
}
