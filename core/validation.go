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
	"fmt"
	"strings"
)

// ValidateKnowledgeEntry validates a KnowledgeEntry according to domain rules.
//
// Validation rules:
//   - TenantID must not be empty and must not contain NUL bytes
//   - Question, Answer and Language must not be empty
//   - Priority must be within MinPriority..MaxPriority
//
// NOT validated:
//   - Keywords and Category (empty is valid and scores as nothing)
//   - ID (0 means "derive from content")
//   - UsageCount and LastUsed (telemetry)
func ValidateKnowledgeEntry(entry *KnowledgeEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if err := ValidateTenant(entry.TenantID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	if strings.TrimSpace(entry.Question) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyQuestion)
	}

	if strings.TrimSpace(entry.Answer) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyAnswer)
	}

	if strings.TrimSpace(entry.Language) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyLanguage)
	}

	if entry.Priority < MinPriority || entry.Priority > MaxPriority {
		return fmt.Errorf("%w: %w: %d", ErrInvalidEntry, ErrInvalidPriority, entry.Priority)
	}

	return nil
}

// ValidateTenant checks that a tenant identifier can be used as a storage key.
func ValidateTenant(tenantID string) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	if strings.ContainsRune(tenantID, 0) {
		return ErrInvalidTenant
	}
	return nil
}
