package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.OAuthStateStore = (*MockOAuthStateStore)(nil)

// MockOAuthStateStore is a mock implementation of OAuthStateStore for testing
type MockOAuthStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState

	SaveErr error
	GetErr  error
}

// NewMockOAuthStateStore creates a new MockOAuthStateStore
func NewMockOAuthStateStore() *MockOAuthStateStore {
	return &MockOAuthStateStore{
		states: make(map[string]*domain.OAuthState),
	}
}

func (m *MockOAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *state
	m.states[state.State] = &s
	return nil
}

func (m *MockOAuthStateStore) GetAndDelete(ctx context.Context, state string) (*domain.OAuthState, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	if s.IsExpired() {
		return nil, nil
	}
	return s, nil
}

func (m *MockOAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := time.Now()
	for k, s := range m.states {
		if !now.Before(s.ExpiresAt) {
			delete(m.states, k)
			n++
		}
	}
	return n, nil
}

// Peek returns a stored state without consuming it.
func (m *MockOAuthStateStore) Peek(state string) *domain.OAuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[state]
}

// Count returns the number of stored states.
func (m *MockOAuthStateStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
