package prompt

import "errors"

var (
	// ErrRetrieverRequired is returned when no knowledge retriever is provided.
	ErrRetrieverRequired = errors.New("knowledge retriever required")

	// ErrCompleterRequired is returned by Reply when no completion model is configured.
	ErrCompleterRequired = errors.New("completion model not configured")

	// ErrEmptyMessage is returned for blank guest messages.
	ErrEmptyMessage = errors.New("message is empty")
)
