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

package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
)

const defaultInstructions = `You are a helpful concierge assistant for %s.
Answer the guest's question politely and concisely, in the language the guest uses.
If you are not sure about a fact, say so and offer to connect the guest with the staff.`

const knowledgeHeader = `Knowledge base:
Use the following verified answers when they are relevant. Prefer them over general knowledge and do not contradict them.`

// Retriever finds knowledge entries for a guest message.
// *search.Searcher satisfies it.
type Retriever interface {
	Search(ctx context.Context, tenantID, query, language string, limit int) []core.MatchCandidate
}

// BusinessProfile describes the tenant the assistant speaks for.
type BusinessProfile struct {
	Name         string `json:"business_name"`
	Instructions string `json:"instructions"`
}

// ChatRequest is one guest turn.
type ChatRequest struct {
	TenantID string
	Language string
	Message  string
	Profile  BusinessProfile
	Limit    int
}

// ChatReply is the assistant's answer and the entries that grounded it.
type ChatReply struct {
	Reply   string                `json:"reply"`
	Sources []core.MatchCandidate `json:"sources"`
}

// Assembler builds grounded prompts and obtains replies.
type Assembler struct {
	retriever Retriever
	completer ai.Completer
	logger    *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAssembler creates an Assembler. completer may be nil, in which case
// BuildSystemPrompt still works and Reply returns ErrCompleterRequired.
func NewAssembler(retriever Retriever, completer ai.Completer, opts ...Option) (*Assembler, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	a := &Assembler{
		retriever: retriever,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "assembler")
	return a, nil
}

// CanReply reports whether a completion model is configured.
func (a *Assembler) CanReply() bool {
	return a.completer != nil
}

// BuildSystemPrompt renders the business instructions followed by the
// matched entries. The knowledge section is omitted when there are no matches.
func BuildSystemPrompt(profile BusinessProfile, matches []core.MatchCandidate) string {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = "our business"
	}

	var b strings.Builder
	fmt.Fprintf(&b, defaultInstructions, name)
	if instructions := strings.TrimSpace(profile.Instructions); instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(instructions)
	}

	if len(matches) > 0 {
		b.WriteString("\n\n")
		b.WriteString(knowledgeHeader)
		for i, m := range matches {
			fmt.Fprintf(&b, "\n\n%d. Q: %s\n   A: %s", i+1, m.Question, m.Answer)
			if m.Category != "" {
				fmt.Fprintf(&b, "\n   Category: %s", m.Category)
			}
		}
	}

	return b.String()
}

// Reply searches the knowledge base, builds the system prompt and asks the
// completion model for an answer.
func (a *Assembler) Reply(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if a.completer == nil {
		return nil, ErrCompleterRequired
	}

	matches := a.retriever.Search(ctx, req.TenantID, message, req.Language, req.Limit)
	a.logger.Debug("knowledge matches", "tenant", req.TenantID, "matches", len(matches))

	system := BuildSystemPrompt(req.Profile, matches)
	reply, err := a.completer.Complete(ctx, system, message)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	if matches == nil {
		matches = []core.MatchCandidate{}
	}
	return &ChatReply{Reply: reply, Sources: matches}, nil
}
