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

package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for knowledge entries.
// It is either supplied by the tenant's import or derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntryID derives the ID of an entry that was imported without one.
// Re-importing the same question for the same tenant and language updates
// the existing entry instead of creating a duplicate.
func EntryID(tenantID, language, question string) ID {
	return IDFromContent(tenantID + "\x00" + strings.ToLower(language) + "\x00" + strings.ToLower(strings.TrimSpace(question)))
}

// MinPriority and MaxPriority bound the tenant-assigned entry priority.
const (
	MinPriority = 0
	MaxPriority = 10
)

// KnowledgeEntry is one tenant-authored Q&A record used to ground chatbot replies.
//
// Retrieval treats Question, Answer, Keywords and Priority as read-only; the
// only fields it ever changes are UsageCount and LastUsed.
type KnowledgeEntry struct {
	Id         ID
	TenantID   string
	Question   string    // Canonical phrasing of the guest question
	Answer     string    // Returned to the guest as-is, never scored
	Category   string    // Free-text grouping label
	Keywords   string    // Comma-separated synonyms and phrases
	Language   string    // Language code, e.g. "en"
	Priority   int       // 0-10, tenant-assigned boost
	IsActive   bool
	UsageCount int64
	LastUsed   time.Time // Zero until the entry wins a confident match
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// KeywordList splits Keywords on commas and returns the trimmed, non-empty parts.
func (e *KnowledgeEntry) KeywordList() []string {
	if e.Keywords == "" {
		return nil
	}
	parts := strings.Split(e.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

// MatchSource identifies which matcher produced a candidate.
type MatchSource string

const (
	// SourceLexical marks candidates scored by keyword and priority heuristics.
	SourceLexical MatchSource = "lexical"
	// SourceSemantic marks candidates scored by embedding similarity.
	SourceSemantic MatchSource = "semantic"
)

// MatchCandidate is a scored knowledge entry produced by one of the matchers.
//
// Score is unitless and only comparable with scores from the same matcher:
// lexical scores are unbounded additive integers, semantic scores are
// cosine similarity scaled to 0-100.
type MatchCandidate struct {
	EntryID  ID          `json:"id"`
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Category string      `json:"category"`
	Score    int         `json:"score"`
	Source   MatchSource `json:"source"`
}

// NewMatchCandidate builds a candidate for entry with the given score.
func NewMatchCandidate(entry *KnowledgeEntry, score int, source MatchSource) MatchCandidate {
	return MatchCandidate{
		EntryID:  entry.Id,
		Question: entry.Question,
		Answer:   entry.Answer,
		Category: entry.Category,
		Score:    score,
		Source:   source,
	}
}
