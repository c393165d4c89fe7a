package ai

import "context"

// Embedder converts text into vector embeddings.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple texts in one call.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer phrases a reply with a chat model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends a system prompt and a user message and returns the
	// model's reply text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service, or nil when embeddings
	// are not configured.
	Embedder() Embedder

	// Completer returns the chat completion service, or nil when completions
	// are not configured.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
