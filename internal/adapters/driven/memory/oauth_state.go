// Package memory provides in-process driven adapters for single-instance
// deployments and local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

// OAuthStateStore keeps pending OAuth flows in a process-local cache.
// States do not survive a restart and are not shared between instances.
type OAuthStateStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewOAuthStateStore creates an empty store. Expired entries are removed by
// Cleanup rather than a background goroutine.
func NewOAuthStateStore() *OAuthStateStore {
	return &OAuthStateStore{c: gocache.New(domain.DefaultStateTTL, 0)}
}

func (s *OAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.CreatedAt.Add(domain.DefaultStateTTL)
	}

	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: state already expired", domain.ErrInvalidInput)
	}

	cp := *state
	if err := s.c.Add(state.State, &cp, ttl); err != nil {
		return fmt.Errorf("save oauth state: state already exists")
	}
	return nil
}

func (s *OAuthStateStore) GetAndDelete(ctx context.Context, state string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(state)
	if !ok {
		return nil, nil
	}
	s.c.Delete(state)

	st, _ := v.(*domain.OAuthState)
	if st == nil || st.IsExpired() {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *OAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.c.ItemCount()
	s.c.DeleteExpired()
	return int64(before - s.c.ItemCount()), nil
}
