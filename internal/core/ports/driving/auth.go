package driving

import (
	"context"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// AuthService validates session tokens presented by callers
type AuthService interface {
	// ValidateToken validates a session token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
