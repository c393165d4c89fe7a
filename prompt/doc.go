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

// Package prompt assembles chat replies grounded in a tenant's knowledge base.
//
// The Assembler searches the knowledge base for the guest's message, renders
// the matches into the system prompt, and asks the completion model for a
// reply. Search is best-effort: with no matches the model still answers from
// the business instructions alone.
package prompt
