package domain

import (
	"strings"
	"time"
)

// DefaultStateTTL is how long a started connect flow stays valid.
const DefaultStateTTL = 10 * time.Minute

// OAuthState represents a pending OAuth authorization flow.
// Used for CSRF protection and PKCE code verifier storage.
type OAuthState struct {
	// State is a cryptographically random string used for CSRF protection.
	State string `json:"state"`

	Provider ProviderType `json:"provider"`

	// CodeVerifier is the PKCE code verifier (plain text, never sent to the browser).
	// Empty for providers that do not use PKCE.
	CodeVerifier string `json:"code_verifier,omitempty"`

	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`

	// RedirectURL is where the browser is sent once the callback completes.
	RedirectURL string `json:"redirect_url"`

	// ShopDomain is the *.myshopify.com host for Shopify flows.
	ShopDomain string `json:"shop_domain,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the state can no longer be accepted
func (s *OAuthState) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// OAuthToken is the token set returned by a provider token endpoint.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time // zero when the provider does not report expiry
	Scopes       []string
}

// AccountInfo identifies the provider account behind a token.
type AccountInfo struct {
	ID   string
	Name string
}

// SplitScopes splits a space or comma separated scope string into a slice.
func SplitScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// MaskToken returns a preview of a token safe for debug logs.
// Tokens of 12 characters or fewer are fully masked.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
