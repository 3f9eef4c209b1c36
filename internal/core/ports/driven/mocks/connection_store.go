package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.ConnectionStore = (*MockConnectionStore)(nil)

// MockConnectionStore is a mock implementation of ConnectionStore for testing.
// It also holds listings so Disconnect can be checked end to end.
type MockConnectionStore struct {
	mu       sync.RWMutex
	conns    map[string]*domain.Connection // key: organizationID|provider
	listings map[string]*domain.Listing

	// Error injection (optional). A failing Disconnect changes nothing.
	UpsertErr error
	GetErr    error
	DeleteErr error
	UnlinkErr error
}

// NewMockConnectionStore creates a new MockConnectionStore
func NewMockConnectionStore() *MockConnectionStore {
	return &MockConnectionStore{
		conns:    make(map[string]*domain.Connection),
		listings: make(map[string]*domain.Listing),
	}
}

func connKey(organizationID string, provider domain.ProviderType) string {
	return organizationID + "|" + string(provider)
}

func (m *MockConnectionStore) Upsert(ctx context.Context, conn *domain.Connection) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := connKey(conn.OrganizationID, conn.Provider)
	if existing, ok := m.conns[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	}
	c := *conn
	m.conns[key] = &c
	return nil
}

func (m *MockConnectionStore) Get(ctx context.Context, organizationID string, provider domain.ProviderType) (*domain.Connection, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.conns[connKey(organizationID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *conn
	return &c, nil
}

func (m *MockConnectionStore) ListByOrganization(ctx context.Context, organizationID string) ([]*domain.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Connection
	for _, conn := range m.conns {
		if conn.OrganizationID == organizationID {
			c := *conn
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Provider < result[j].Provider })
	return result, nil
}

func (m *MockConnectionStore) Disconnect(ctx context.Context, organizationID string, provider domain.ProviderType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := connKey(organizationID, provider)
	if _, ok := m.conns[key]; !ok {
		return 0, domain.ErrNotFound
	}
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	if m.UnlinkErr != nil {
		return 0, m.UnlinkErr
	}

	delete(m.conns, key)
	var n int64
	for _, l := range m.listings {
		if l.OrganizationID == organizationID && l.Provider == provider {
			l.Unlink()
			n++
		}
	}
	return n, nil
}

func (m *MockConnectionStore) UpdateTokens(ctx context.Context, id string, access domain.EncryptedValue, refresh *domain.EncryptedValue, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.byID(id)
	if conn == nil {
		return domain.ErrNotFound
	}
	conn.AccessToken = access
	conn.RefreshToken = refresh
	conn.ExpiresAt = expiresAt
	conn.UpdatedAt = time.Now()
	return nil
}

func (m *MockConnectionStore) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.byID(id)
	if conn == nil {
		return domain.ErrNotFound
	}
	conn.Status = status
	conn.LastError = lastError
	conn.UpdatedAt = time.Now()
	return nil
}

// Count returns the number of stored connections (for test assertions).
func (m *MockConnectionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// PutListing stores a listing (for test setup).
func (m *MockConnectionStore) PutListing(listing *domain.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := *listing
	m.listings[l.ID] = &l
}

// Listing returns a copy of a listing, or nil.
func (m *MockConnectionStore) Listing(id string) *domain.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	c := *l
	return &c
}

func (m *MockConnectionStore) byID(id string) *domain.Connection {
	for _, conn := range m.conns {
		if conn.ID == id {
			return conn
		}
	}
	return nil
}
