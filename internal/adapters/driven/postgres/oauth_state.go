package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Ensure OAuthStateStore implements the interface.
var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

// consumeStateQuery deletes an unexpired state and returns it in one
// statement, so a state is consumed at most once.
const consumeStateQuery = `
	DELETE FROM oauth_states
	WHERE state = $1 AND expires_at > NOW()
	RETURNING state, provider, code_verifier, organization_id, user_id,
		redirect_url, shop_domain, created_at, expires_at
`

// OAuthStateStore implements driven.OAuthStateStore using PostgreSQL.
type OAuthStateStore struct {
	db *sql.DB
}

// NewOAuthStateStore creates a new PostgreSQL-backed OAuth state store.
func NewOAuthStateStore(db *sql.DB) *OAuthStateStore {
	return &OAuthStateStore{db: db}
}

// Save stores a new OAuth state.
func (s *OAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.CreatedAt.Add(domain.DefaultStateTTL)
	}

	query := `
		INSERT INTO oauth_states (
			state, provider, code_verifier, organization_id, user_id,
			redirect_url, shop_domain, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.State,
		state.Provider,
		nullString(state.CodeVerifier),
		state.OrganizationID,
		state.UserID,
		state.RedirectURL,
		nullString(state.ShopDomain),
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}

	return nil
}

// GetAndDelete atomically retrieves and deletes the state.
// Uses DELETE ... RETURNING for atomic single-use semantics.
func (s *OAuthStateStore) GetAndDelete(ctx context.Context, state string) (*domain.OAuthState, error) {
	var st domain.OAuthState
	var codeVerifier, shopDomain sql.NullString
	err := s.db.QueryRowContext(ctx, consumeStateQuery, state).Scan(
		&st.State,
		&st.Provider,
		&codeVerifier,
		&st.OrganizationID,
		&st.UserID,
		&st.RedirectURL,
		&shopDomain,
		&st.CreatedAt,
		&st.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // State not found or expired
	}
	if err != nil {
		return nil, fmt.Errorf("get and delete oauth state: %w", err)
	}

	st.CodeVerifier = codeVerifier.String
	st.ShopDomain = shopDomain.String
	return &st, nil
}

// Cleanup removes expired states.
func (s *OAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}
	return n, nil
}
