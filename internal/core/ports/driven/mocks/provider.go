package mocks

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var (
	_ driven.ProviderClient   = (*MockProviderClient)(nil)
	_ driven.ProviderRegistry = (*MockProviderRegistry)(nil)
)

// MockProviderClient is a configurable ProviderClient for testing.
// Unset function fields fall back to canned responses.
type MockProviderClient struct {
	Type domain.ProviderType
	PKCE bool

	ExchangeFn    func(ctx context.Context, req driven.ExchangeRequest) (*domain.OAuthToken, error)
	RefreshFn     func(ctx context.Context, refreshToken, shopDomain string) (*domain.OAuthToken, error)
	AccountInfoFn func(ctx context.Context, token *domain.OAuthToken, shopDomain string) (*domain.AccountInfo, error)

	mu            sync.Mutex
	exchangeCalls []driven.ExchangeRequest
	refreshCalls  int
}

// NewMockProviderClient creates a mock client for a provider.
func NewMockProviderClient(provider domain.ProviderType, pkce bool) *MockProviderClient {
	return &MockProviderClient{Type: provider, PKCE: pkce}
}

func (m *MockProviderClient) Provider() domain.ProviderType { return m.Type }

func (m *MockProviderClient) UsesPKCE() bool { return m.PKCE }

func (m *MockProviderClient) DefaultScopes() []string { return []string{"read", "write"} }

func (m *MockProviderClient) AuthCodeURL(req driven.AuthCodeRequest) (string, error) {
	q := url.Values{
		"client_id": {"test-client"},
		"state":     {req.State},
	}
	if req.CodeVerifier != "" {
		q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(req.CodeVerifier))
		q.Set("code_challenge_method", "S256")
	}
	host := "provider.example.com"
	if req.ShopDomain != "" {
		host = req.ShopDomain
	}
	return fmt.Sprintf("https://%s/oauth/authorize?%s", host, q.Encode()), nil
}

func (m *MockProviderClient) Exchange(ctx context.Context, req driven.ExchangeRequest) (*domain.OAuthToken, error) {
	m.mu.Lock()
	m.exchangeCalls = append(m.exchangeCalls, req)
	m.mu.Unlock()

	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, req)
	}
	return &domain.OAuthToken{
		AccessToken:  "access-" + req.Code,
		RefreshToken: "refresh-" + req.Code,
		TokenType:    "Bearer",
	}, nil
}

func (m *MockProviderClient) Refresh(ctx context.Context, refreshToken, shopDomain string) (*domain.OAuthToken, error) {
	m.mu.Lock()
	m.refreshCalls++
	m.mu.Unlock()

	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken, shopDomain)
	}
	return &domain.OAuthToken{AccessToken: "refreshed-access", TokenType: "Bearer"}, nil
}

func (m *MockProviderClient) AccountInfo(ctx context.Context, token *domain.OAuthToken, shopDomain string) (*domain.AccountInfo, error) {
	if m.AccountInfoFn != nil {
		return m.AccountInfoFn(ctx, token, shopDomain)
	}
	return &domain.AccountInfo{ID: "acct-1", Name: "Test Account"}, nil
}

// ExchangeCalls returns the exchange requests received.
func (m *MockProviderClient) ExchangeCalls() []driven.ExchangeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.ExchangeRequest(nil), m.exchangeCalls...)
}

// RefreshCalls returns how many refreshes were requested.
func (m *MockProviderClient) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// MockProviderRegistry is a ProviderRegistry backed by a map.
type MockProviderRegistry struct {
	Clients      map[domain.ProviderType]driven.ProviderClient
	Unconfigured map[domain.ProviderType][]string
}

// NewMockProviderRegistry registers the given clients.
func NewMockProviderRegistry(clients ...driven.ProviderClient) *MockProviderRegistry {
	r := &MockProviderRegistry{
		Clients:      make(map[domain.ProviderType]driven.ProviderClient),
		Unconfigured: make(map[domain.ProviderType][]string),
	}
	for _, c := range clients {
		r.Clients[c.Provider()] = c
	}
	return r
}

func (r *MockProviderRegistry) Client(provider domain.ProviderType) (driven.ProviderClient, error) {
	if c, ok := r.Clients[provider]; ok {
		return c, nil
	}
	if missing, ok := r.Unconfigured[provider]; ok {
		return nil, &domain.ConfigurationError{Missing: missing}
	}
	return nil, domain.ErrUnknownProvider
}

func (r *MockProviderRegistry) Scopes(provider domain.ProviderType) []string {
	if c, ok := r.Clients[provider]; ok {
		return c.DefaultScopes()
	}
	return nil
}
