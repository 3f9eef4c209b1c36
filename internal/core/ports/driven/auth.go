package driven

import "github.com/madison-studio/madison-connect/internal/core/domain"

// AuthAdapter verifies session tokens issued by the identity provider.
// This service never issues sessions itself.
type AuthAdapter interface {
	ParseToken(token string) (*domain.TokenClaims, error)
}
