package driven

import (
	"context"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// CredentialVault encrypts and decrypts provider tokens.
// Every Encrypt call draws a fresh IV; callers cannot supply one.
type CredentialVault interface {
	Encrypt(plaintext string) (domain.EncryptedValue, error)
	Decrypt(value domain.EncryptedValue) (string, error)
}

// ProviderRegistry resolves the client for a provider.
type ProviderRegistry interface {
	// Client returns the provider's client, or a *domain.ConfigurationError
	// when its credentials are not set.
	Client(provider domain.ProviderType) (ProviderClient, error)

	// Scopes returns the scopes to request for the provider.
	Scopes(provider domain.ProviderType) []string
}

// ProviderClient performs OAuth operations against one provider.
// Each provider (Etsy, LinkedIn, ...) has its own implementation.
type ProviderClient interface {
	// Provider returns the provider this client talks to.
	Provider() domain.ProviderType

	// UsesPKCE reports whether the provider requires a PKCE verifier.
	UsesPKCE() bool

	// DefaultScopes returns the scopes requested when none are configured.
	DefaultScopes() []string

	// AuthCodeURL constructs the authorization URL.
	// codeChallenge is empty for providers without PKCE.
	AuthCodeURL(req AuthCodeRequest) (string, error)

	// Exchange exchanges an authorization code for tokens.
	Exchange(ctx context.Context, req ExchangeRequest) (*domain.OAuthToken, error)

	// Refresh obtains a new token set from a refresh token.
	Refresh(ctx context.Context, refreshToken, shopDomain string) (*domain.OAuthToken, error)

	// AccountInfo fetches the account the token belongs to.
	AccountInfo(ctx context.Context, token *domain.OAuthToken, shopDomain string) (*domain.AccountInfo, error)
}

// AuthCodeRequest holds the inputs for building an authorization URL.
type AuthCodeRequest struct {
	State string

	// CodeVerifier is the PKCE verifier; only its S256 challenge leaves
	// the service. Empty for providers without PKCE.
	CodeVerifier string

	Scopes     []string
	ShopDomain string
}

// ExchangeRequest holds the inputs for a code exchange.
type ExchangeRequest struct {
	Code         string
	CodeVerifier string
	ShopDomain   string
}
