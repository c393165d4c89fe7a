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

// Package ai provides abstractions for the AI services used by the concierge.
//
// Two services are defined:
//
//   - Embedder: generates vector embeddings for semantic matching
//   - Completer: phrases guest replies from matched knowledge entries
//
// Both are optional. An AIProvider returns nil for any service whose
// credentials are missing, and callers degrade to lexical-only behavior.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible implementation on langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and inspect call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	if embedder := provider.Embedder(); embedder != nil {
//	    vector, err := embedder.EmbedText(ctx, "what time is check-in")
//	}
package ai
