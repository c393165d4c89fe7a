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
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/prompt"
)

type searchRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

type searchResponse struct {
	Results []core.MatchCandidate `json:"results"`
}

type chatRequest struct {
	Message      string `json:"message"`
	Language     string `json:"language"`
	BusinessName string `json:"business_name"`
	Instructions string `json:"instructions"`
	Limit        int    `json:"limit"`
}

type entryView struct {
	ID         core.ID    `json:"id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Category   string     `json:"category,omitempty"`
	Keywords   string     `json:"keywords,omitempty"`
	Language   string     `json:"language"`
	Priority   int        `json:"priority"`
	Active     bool       `json:"active"`
	UsageCount int64      `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}

type entriesResponse struct {
	Entries []entryView `json:"entries"`
}

func newEntryView(entry *core.KnowledgeEntry) entryView {
	view := entryView{
		ID:         entry.Id,
		Question:   entry.Question,
		Answer:     entry.Answer,
		Category:   entry.Category,
		Keywords:   entry.Keywords,
		Language:   entry.Language,
		Priority:   entry.Priority,
		Active:     entry.IsActive,
		UsageCount: entry.UsageCount,
	}
	if !entry.LastUsed.IsZero() {
		lastUsed := entry.LastUsed
		view.LastUsed = &lastUsed
	}
	return view
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func tenantParam(c *fiber.Ctx) (string, error) {
	tenant := c.Params("tenant")
	if err := core.ValidateTenant(tenant); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return tenant, nil
}

func languageOrDefault(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return defaultLanguage
	}
	return language
}

func (s *Server) search(c *fiber.Ctx) error {
	tenant, err := tenantParam(c)
	if err != nil {
		return err
	}

	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	results := s.searcher.Search(c.UserContext(), tenant, req.Query, languageOrDefault(req.Language), req.Limit)
	if results == nil {
		results = []core.MatchCandidate{}
	}
	return c.JSON(searchResponse{Results: results})
}

func (s *Server) listEntries(c *fiber.Ctx) error {
	tenant, err := tenantParam(c)
	if err != nil {
		return err
	}

	entries, err := s.repository.ListEntries(c.UserContext(), tenant)
	if err != nil {
		return err
	}

	language := strings.ToLower(strings.TrimSpace(c.Query("language")))
	views := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		if language != "" && entry.Language != language {
			continue
		}
		views = append(views, newEntryView(entry))
	}
	return c.JSON(entriesResponse{Entries: views})
}

func (s *Server) chat(c *fiber.Ctx) error {
	if s.assembler == nil || !s.assembler.CanReply() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "chat replies are not configured")
	}

	tenant, err := tenantParam(c)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := s.assembler.Reply(c.UserContext(), prompt.ChatRequest{
		TenantID: tenant,
		Language: languageOrDefault(req.Language),
		Message:  req.Message,
		Profile: prompt.BusinessProfile{
			Name:         req.BusinessName,
			Instructions: req.Instructions,
		},
		Limit: req.Limit,
	})
	switch {
	case errors.Is(err, prompt.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(reply)
}
