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

package ai

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultHost is the OpenAI API endpoint.
	DefaultHost = "https://api.openai.com/v1"
	// DefaultEmbeddingModel is used when no embedding model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultCompletionModel is used when no completion model is configured.
	DefaultCompletionModel = "gpt-4o-mini"
	// DefaultEmbedTimeout bounds a single embedding request.
	DefaultEmbedTimeout = 5 * time.Second
)

// Config holds configuration for AI service providers.
//
// Each service is enabled only when its API key is set. A deployment with
// no embedding key still answers questions using lexical matching alone.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	EmbeddingModel string

	// EmbeddingAPIKey authenticates embedding requests.
	EmbeddingAPIKey string

	// CompletionHost is the base URL for the chat completion service API.
	CompletionHost string

	// CompletionModel is the model identifier used to phrase replies.
	// Example: "gpt-4o-mini", "qwen2.5:3b"
	CompletionModel string

	// CompletionAPIKey authenticates completion requests.
	CompletionAPIKey string

	// EmbedTimeout bounds each embedding request.
	// Default: 5s
	EmbedTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithHost sets both embedding and completion hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.CompletionHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithEmbeddingAPIKey sets the embedding API key, enabling semantic matching.
func WithEmbeddingAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
	}
}

// WithCompletionAPIKey sets the completion API key, enabling reply phrasing.
func WithCompletionAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.CompletionAPIKey = key
	}
}

// WithAPIKey sets the same API key for both services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
		c.CompletionAPIKey = key
	}
}

// WithEmbedTimeout sets the per-request embedding timeout.
func WithEmbedTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.EmbedTimeout = d
	}
}

// DefaultConfig returns a Config pointing at the OpenAI API with no credentials.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:   DefaultHost,
		CompletionHost:  DefaultHost,
		EmbeddingModel:  DefaultEmbeddingModel,
		CompletionModel: DefaultCompletionModel,
		EmbedTimeout:    DefaultEmbedTimeout,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("embeddinggemma"),
//	    WithAPIKey("none"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// EmbeddingEnabled reports whether embedding credentials are configured.
func (c *Config) EmbeddingEnabled() bool {
	return c.EmbeddingAPIKey != ""
}

// CompletionEnabled reports whether completion credentials are configured.
func (c *Config) CompletionEnabled() bool {
	return c.CompletionAPIKey != ""
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.CompletionHost = normalizeHost(c.CompletionHost)
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = DefaultEmbedTimeout
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that every enabled service is fully configured.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingEnabled() {
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.EmbeddingModel == "" {
			return errors.New("ai config: EmbeddingModel is required")
		}
	}
	if c.CompletionEnabled() {
		if c.CompletionHost == "" {
			return errors.New("ai config: CompletionHost is required")
		}
		if c.CompletionModel == "" {
			return errors.New("ai config: CompletionModel is required")
		}
	}
	return nil
}
