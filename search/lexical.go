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
	"sort"
	"strings"
	"unicode"

	"github.com/poiesic/concierge/core"
)

// Lexical scoring weights.
const (
	exactQuestionScore   = 100
	questionContainScore = 50
	keywordMatchScore    = 30
	keywordWordScore     = 10
	wordExactScore       = 5
	wordPartialScore     = 2
	priorityWeight       = 5

	// sufficientScore is the lexical top score at or above which the
	// semantic matcher is not consulted.
	sufficientScore = 30
)

// DefaultLimit is the number of candidates returned when no limit is given.
const DefaultLimit = 3

// normalize lower-cases text, folds punctuation to spaces and collapses whitespace.
func normalize(text string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(folded), " ")
}

// ScoreEntry computes the additive lexical score of entry against query.
func ScoreEntry(entry *core.KnowledgeEntry, query string) int {
	return scoreNormalized(entry, normalize(query))
}

func scoreNormalized(entry *core.KnowledgeEntry, query string) int {
	score := entry.Priority * priorityWeight
	if query == "" {
		return score
	}

	question := normalize(entry.Question)
	if question == query {
		score += exactQuestionScore
	}
	if strings.Contains(question, query) {
		score += questionContainScore
	}

	queryWords := strings.Fields(query)

	for _, raw := range entry.KeywordList() {
		keyword := normalize(raw)
		if keyword == "" {
			continue
		}
		if strings.Contains(query, keyword) || strings.Contains(keyword, query) {
			score += keywordMatchScore
		}
		for _, word := range queryWords {
			if strings.Contains(word, keyword) || strings.Contains(keyword, word) {
				score += keywordWordScore
			}
		}
	}

	questionWords := strings.Fields(question)
	for _, qw := range queryWords {
		for _, ew := range questionWords {
			switch {
			case qw == ew:
				score += wordExactScore
			case strings.Contains(qw, ew) || strings.Contains(ew, qw):
				score += wordPartialScore
			}
		}
	}

	return score
}

// MatchLexical scores every entry against query and returns those with a
// positive score, highest first, truncated to limit.
// A blank query matches nothing.
func MatchLexical(entries []*core.KnowledgeEntry, query string, limit int) []core.MatchCandidate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	normalized := normalize(query)
	if normalized == "" {
		return []core.MatchCandidate{}
	}

	results := make([]core.MatchCandidate, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if score := scoreNormalized(entry, normalized); score > 0 {
			results = append(results, core.NewMatchCandidate(entry, score, core.SourceLexical))
		}
	}

	return rankCandidates(results, limit)
}

// Insufficient reports whether a lexical result is too weak to answer on its own.
func Insufficient(results []core.MatchCandidate) bool {
	return len(results) == 0 || results[0].Score < sufficientScore
}

// rankCandidates stable-sorts candidates by descending score and truncates to limit.
func rankCandidates(results []core.MatchCandidate, limit int) []core.MatchCandidate {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
