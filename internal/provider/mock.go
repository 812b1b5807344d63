package provider

import (
	"context"
	"sync"
)

func init() {
	RegisterFactory("mock", func(config map[string]any) (Provider, error) {
		m := NewMockProvider()
		if resp := configString(config, "response"); resp != "" {
			m.AddResponse(resp, nil)
		}
		return m, nil
	})
}

// MockProvider is a scripted Provider implementation for testing and local
// development. Responses are returned in the order they were added; once
// exhausted, the last response repeats.
type MockProvider struct {
	responses []string
	errors    []error
	calls     []CompletionRequest
	callIndex int
	mu        sync.Mutex
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// CreateCompletion returns the next scripted response
func (m *MockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.responses) == 0 {
		return "", nil
	}

	idx := m.callIndex
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.callIndex++

	return m.responses[idx], m.errors[idx]
}

// AddResponse adds a scripted response and optional error
func (m *MockProvider) AddResponse(resp string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses = append(m.responses, resp)
	m.errors = append(m.errors, err)
}

// GetCalls returns all recorded completion requests
func (m *MockProvider) GetCalls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]CompletionRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Reset resets the mock state
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses = nil
	m.errors = nil
	m.calls = nil
	m.callIndex = 0
}
