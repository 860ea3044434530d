package agent

import (
	"context"
	"strings"
	"sync"
)

// MockClient provides fake model responses for testing. Responses are keyed
// by a substring matched against the user prompt; the first matching key
// wins, in registration order.
type MockClient struct {
	mu        sync.Mutex
	keys      []string
	responses map[string]string
	fallback  string
	err       error
	calls     []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]string),
		fallback:  `{"message": "mock response"}`,
	}
}

// Respond registers a canned response returned when the user prompt
// contains key.
func (m *MockClient) Respond(key, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.responses[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.responses[key] = response
	return m
}

// RespondDefault sets the response for prompts matching no key.
func (m *MockClient) RespondDefault(response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// Fail makes every call return err.
func (m *MockClient) Fail(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Configured is always true for the mock.
func (m *MockClient) Configured() bool { return true }

// Calls returns the user prompts seen so far.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockClient) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, user)
	if m.err != nil {
		return "", m.err
	}
	for _, key := range m.keys {
		if strings.Contains(user, key) {
			return m.responses[key], nil
		}
	}
	return m.fallback, nil
}

func (m *MockClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return m.Complete(ctx, system, user)
}
