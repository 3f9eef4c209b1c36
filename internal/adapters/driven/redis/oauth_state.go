package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

const oauthStatePrefix = "madison:oauth_state:"

// OAuthStateStore implements driven.OAuthStateStore using Redis.
// States are stored as JSON with a key TTL matching ExpiresAt, so Redis
// removes abandoned flows on its own.
type OAuthStateStore struct {
	client *redis.Client
}

// NewOAuthStateStore creates a new Redis-backed OAuthStateStore
func NewOAuthStateStore(client *redis.Client) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

// Save stores a state until its ExpiresAt.
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

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, oauthStatePrefix+state.State, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	if !ok {
		return fmt.Errorf("save oauth state: state already exists")
	}
	return nil
}

// GetAndDelete atomically retrieves and deletes the state with GETDEL.
func (s *OAuthStateStore) GetAndDelete(ctx context.Context, state string) (*domain.OAuthState, error) {
	data, err := s.client.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get and delete oauth state: %w", err)
	}

	var st domain.OAuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}

	// Key TTL has millisecond precision; ExpiresAt is authoritative.
	if st.IsExpired() {
		return nil, nil
	}
	return &st, nil
}

// Cleanup is a no-op: Redis expires state keys itself.
func (s *OAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}
