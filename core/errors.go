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

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntry indicates a KnowledgeEntry failed validation.
	ErrInvalidEntry = errors.New("invalid knowledge entry")

	// ErrEmptyTenant indicates the TenantID field is empty.
	ErrEmptyTenant = errors.New("tenant cannot be empty")

	// ErrEmptyQuestion indicates the Question field is empty.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmptyAnswer indicates the Answer field is empty.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrEmptyLanguage indicates the Language field is empty.
	ErrEmptyLanguage = errors.New("language cannot be empty")

	// ErrInvalidPriority indicates a priority outside MinPriority..MaxPriority.
	ErrInvalidPriority = errors.New("priority out of range")

	// ErrInvalidTenant indicates a tenant identifier with reserved characters.
	ErrInvalidTenant = errors.New("tenant contains reserved characters")
)
