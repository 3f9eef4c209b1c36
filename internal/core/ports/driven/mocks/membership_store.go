package mocks

import (
	"context"
	"sync"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.MembershipStore = (*MockMembershipStore)(nil)

// MockMembershipStore is a mock implementation of MembershipStore for testing
type MockMembershipStore struct {
	mu    sync.RWMutex
	roles map[string]domain.Role // key: organizationID|userID

	GetRoleErr error
}

// NewMockMembershipStore creates a new MockMembershipStore
func NewMockMembershipStore() *MockMembershipStore {
	return &MockMembershipStore{
		roles: make(map[string]domain.Role),
	}
}

// SetRole assigns a role (for test setup).
func (m *MockMembershipStore) SetRole(organizationID, userID string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[organizationID+"|"+userID] = role
}

// Remove deletes a membership (for test setup).
func (m *MockMembershipStore) Remove(organizationID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, organizationID+"|"+userID)
}

func (m *MockMembershipStore) GetRole(ctx context.Context, organizationID, userID string) (domain.Role, error) {
	if m.GetRoleErr != nil {
		return "", m.GetRoleErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[organizationID+"|"+userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return role, nil
}
