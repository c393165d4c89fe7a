package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryRequired is returned when a knowledge repository is not provided.
	ErrRepositoryRequired = errors.New("knowledge repository required")

	// ErrMissingTenant is returned for documents without a tenant.
	ErrMissingTenant = errors.New("document has no tenant")

	// ErrInvalidDocument is returned when a document cannot be parsed.
	ErrInvalidDocument = errors.New("invalid knowledge document")
)

// EntryError reports one entry rejected during import.
type EntryError struct {
	Document int
	Index    int
	Question string
	Err      error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("document %d entry %d (%q): %v", e.Document, e.Index, e.Question, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
