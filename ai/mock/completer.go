package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/nbharvest/ai"
)

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete answers from Responses.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Responses maps a prompt substring to the answer returned for it.
	// The first key found in the prompt wins; map order decides ties.
	Responses map[string]string

	// Default is returned when no Responses key matches.
	Default string

	callCount atomic.Int64
	mu        sync.Mutex
	prompts   []string
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer that answers "mock answer".
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{Default: "mock answer"}
}

// Complete records the prompt and returns the injected or canned answer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	for key, answer := range m.Responses {
		if strings.Contains(prompt, key) {
			return answer, nil
		}
	}
	return m.Default, nil
}

// Prompts returns every prompt received so far.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears recorded calls and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.prompts = nil
	m.mu.Unlock()
	m.CompleteFunc = nil
	m.Responses = nil
}
