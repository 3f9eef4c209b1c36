package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProviderRegistry = (*Registry)(nil)

// Registry maps provider types to their OAuth clients.
// Providers without credentials are remembered so callers get an
// actionable configuration error instead of a generic failure.
type Registry struct {
	mu           sync.RWMutex
	clients      map[domain.ProviderType]driven.ProviderClient
	unconfigured map[domain.ProviderType][]string
	scopes       map[domain.ProviderType][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:      make(map[domain.ProviderType]driven.ProviderClient),
		unconfigured: make(map[domain.ProviderType][]string),
		scopes:       make(map[domain.ProviderType][]string),
	}
}

// Register registers a client for its provider.
func (r *Registry) Register(client driven.ProviderClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Provider()] = client
	delete(r.unconfigured, client.Provider())
}

// MarkUnconfigured records that a provider is missing the given settings.
func (r *Registry) MarkUnconfigured(provider domain.ProviderType, missing []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, provider)
	r.unconfigured[provider] = missing
}

// SetScopes overrides the scopes requested for a provider.
func (r *Registry) SetScopes(provider domain.ProviderType, scopes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[provider] = append([]string(nil), scopes...)
}

// Client returns the client for a provider.
// Returns a *domain.ConfigurationError when the provider has no credentials
// and domain.ErrUnknownProvider when it was never declared.
func (r *Registry) Client(provider domain.ProviderType) (driven.ProviderClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if client, ok := r.clients[provider]; ok {
		return client, nil
	}
	if missing, ok := r.unconfigured[provider]; ok {
		return nil, &domain.ConfigurationError{
			Missing: missing,
			Guidance: fmt.Sprintf("%s is not connected to an OAuth app; set %s in the server environment and restart",
				provider.DisplayName(), joinVars(missing)),
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
}

// Scopes returns the configured scopes for a provider, falling back to
// the client's defaults.
func (r *Registry) Scopes(provider domain.ProviderType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scopes[provider]; ok && len(s) > 0 {
		return append([]string(nil), s...)
	}
	if client, ok := r.clients[provider]; ok {
		return client.DefaultScopes()
	}
	return nil
}

// Configured returns the providers that have a registered client.
func (r *Registry) Configured() []domain.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.ProviderType, 0, len(r.clients))
	for t := range r.clients {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func joinVars(vars []string) string {
	switch len(vars) {
	case 0:
		return "the client credentials"
	case 1:
		return vars[0]
	}
	out := vars[0]
	for _, v := range vars[1 : len(vars)-1] {
		out += ", " + v
	}
	return out + " and " + vars[len(vars)-1]
}
