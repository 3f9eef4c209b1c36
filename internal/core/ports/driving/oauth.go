package driving

import (
	"context"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// ConnectionService manages the OAuth connection lifecycle between an
// organization and a third-party provider account.
type ConnectionService interface {
	// Start begins a connect flow and returns the provider authorization URL.
	// The state is stored for CSRF validation during callback.
	Start(ctx context.Context, authCtx *domain.AuthContext, req StartRequest) (*StartResponse, error)

	// Callback completes the handshake. It never returns an error: every
	// outcome resolves to a browser redirect.
	Callback(ctx context.Context, req CallbackRequest) *CallbackResult

	// Disconnect removes the organization's connection to the provider and
	// unlinks listings synced through it.
	Disconnect(ctx context.Context, authCtx *domain.AuthContext, req DisconnectRequest) error

	// Refresh forces a token refresh and returns the updated connection.
	Refresh(ctx context.Context, authCtx *domain.AuthContext, req DisconnectRequest) (*domain.ConnectionSummary, error)

	// List returns the organization's connections without token material.
	List(ctx context.Context, authCtx *domain.AuthContext, organizationID string) ([]*domain.ConnectionSummary, error)

	// AccessToken returns a decrypted access token, refreshing it first when
	// it is close to expiry. Used by sync jobs; no caller role is checked.
	AccessToken(ctx context.Context, organizationID string, provider domain.ProviderType) (string, error)
}

// StartRequest represents a request to start a connect flow.
// @Description Request to start an OAuth connect flow
type StartRequest struct {
	Provider domain.ProviderType `json:"-"`

	// OrganizationID is the tenant the connection will belong to.
	OrganizationID string `json:"organizationId" example:"8d0e6a8f-6f2b-4b8e-9d55-3f1c2a7b9e10"`

	// RedirectURL is where to send the browser after the callback.
	// Defaults to the app's integrations settings page.
	RedirectURL string `json:"redirectUrl,omitempty" example:"https://app.madison.studio/settings/integrations"`

	// ShopDomain is required for Shopify.
	ShopDomain string `json:"shopDomain,omitempty" example:"my-store.myshopify.com"`
}

// StartResponse contains the authorization URL and state.
// @Description Response containing the provider authorization URL
type StartResponse struct {
	// AuthURL is the URL to redirect the user to for authorization.
	AuthURL string `json:"authUrl" example:"https://www.etsy.com/oauth/connect?client_id=..."`

	// State is the CSRF token that will be returned in the callback.
	State string `json:"state"`

	// ExpiresAt is when the flow expires (10 minutes).
	ExpiresAt string `json:"expiresAt" example:"2026-01-15T10:10:00Z"`
}

// CallbackRequest represents the OAuth callback from the provider.
type CallbackRequest struct {
	Provider         domain.ProviderType
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackResult is the outcome of a callback.
type CallbackResult struct {
	// RedirectURL is the fully built browser redirect target.
	RedirectURL string

	// Connection is set on success.
	Connection *domain.ConnectionSummary

	// Err is set on failure. Never contains token material.
	Err error
}

// DisconnectRequest identifies the connection to act on.
// @Description Request identifying an organization's provider connection
type DisconnectRequest struct {
	Provider       domain.ProviderType `json:"-"`
	OrganizationID string              `json:"organizationId" example:"8d0e6a8f-6f2b-4b8e-9d55-3f1c2a7b9e10"`
}

// Callback redirect query parameters
const (
	CallbackParamStatus   = "oauth"
	CallbackParamProvider = "provider"
	CallbackParamReason   = "reason"

	CallbackStatusSuccess = "success"
	CallbackStatusError   = "error"
)

// Callback failure reasons
const (
	ReasonInvalidState      = "invalid_state"
	ReasonMissingCode       = "missing_code"
	ReasonForbidden         = "forbidden"
	ReasonNotConfigured     = "provider_not_configured"
	ReasonExchangeFailed    = "exchange_failed"
	ReasonPersistenceFailed = "persistence_failed"
)
