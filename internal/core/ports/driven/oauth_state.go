package driven

import (
	"context"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// OAuthStateStore manages OAuth flow state for CSRF protection.
// States are single-use and expire after a short period.
type OAuthStateStore interface {
	// Save stores a new OAuth state.
	// The state typically expires in 10 minutes.
	Save(ctx context.Context, state *domain.OAuthState) error

	// GetAndDelete atomically retrieves and deletes the state.
	// This ensures single-use semantics.
	// Returns nil, nil if the state doesn't exist or has expired.
	GetAndDelete(ctx context.Context, state string) (*domain.OAuthState, error)

	// Cleanup removes expired states and returns how many were removed.
	// Should be called periodically to clean up abandoned flows.
	Cleanup(ctx context.Context) (int64, error)
}
