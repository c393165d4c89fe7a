package mock

import (
	"context"
	"sync"

	"github.com/poiesic/concierge/ai"
)

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete echoes the user message.
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastSystem string
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer that echoes its input.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns the injected or echoed reply.
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastSystem = system
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, user)
	}
	return user, nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastSystemPrompt returns the system prompt of the most recent call.
func (m *MockCompleter) LastSystemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSystem
}
