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

// Package search answers guest questions from a tenant's knowledge base.
//
// The Searcher runs two matchers in sequence:
//   - a lexical matcher that scores entries by question overlap, keyword
//     overlap and tenant priority, with no external calls
//   - a semantic matcher that scores entries by embedding cosine similarity,
//     consulted only when the lexical result is weak and an embedder is
//     configured
//
// The two score scales are not comparable item by item. The Searcher keeps
// whichever ranked list has the higher top score and records one usage hit
// on the winning entry.
//
// Search never returns an error. Knowledge-base context is an optional
// enrichment to a chat reply, so every internal failure becomes an empty
// result and a log line.
package search
