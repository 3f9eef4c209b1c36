package domain

import "time"

// ConnectionStatus is the sync status of a connection
type ConnectionStatus string

const (
	ConnectionStatusIdle    ConnectionStatus = "idle"
	ConnectionStatusSyncing ConnectionStatus = "syncing"
	ConnectionStatusError   ConnectionStatus = "error"
)

// refreshWindow is how close to expiry an access token gets refreshed.
const refreshWindow = 5 * time.Minute

// EncryptedValue is AEAD ciphertext plus the IV it was sealed with.
type EncryptedValue struct {
	Ciphertext []byte `json:"-"`
	IV         []byte `json:"-"`
}

// IsZero reports whether the value holds no ciphertext.
func (v *EncryptedValue) IsZero() bool {
	return v == nil || len(v.Ciphertext) == 0
}

// Connection is an organization's authenticated link to a provider account.
// There is at most one connection per (organization, provider).
type Connection struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	Provider       ProviderType `json:"provider"`

	// Token material, encrypted. Never persisted or serialized as plaintext.
	AccessToken  EncryptedValue  `json:"-"`
	RefreshToken *EncryptedValue `json:"-"`

	// OAuth metadata (non-secret, safe to expose)
	TokenType string     `json:"token_type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`

	// Provider account identity, best effort
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	ShopDomain  string `json:"shop_domain,omitempty"`

	Status       ConnectionStatus `json:"status"`
	LastError    string           `json:"last_error,omitempty"`
	LastSyncedAt *time.Time       `json:"last_synced_at,omitempty"`

	ConnectedBy string    `json:"connected_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConnectionSummary is a safe view without token material.
type ConnectionSummary struct {
	ID              string           `json:"id"`
	OrganizationID  string           `json:"organization_id"`
	Provider        ProviderType     `json:"provider"`
	Scopes          []string         `json:"scopes,omitempty"`
	AccountID       string           `json:"account_id,omitempty"`
	AccountName     string           `json:"account_name,omitempty"`
	ShopDomain      string           `json:"shop_domain,omitempty"`
	Status          ConnectionStatus `json:"status"`
	LastError       string           `json:"last_error,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	LastSyncedAt    *time.Time       `json:"last_synced_at,omitempty"`
	HasRefreshToken bool             `json:"has_refresh_token"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToSummary converts Connection to ConnectionSummary.
func (c *Connection) ToSummary() *ConnectionSummary {
	return &ConnectionSummary{
		ID:              c.ID,
		OrganizationID:  c.OrganizationID,
		Provider:        c.Provider,
		Scopes:          c.Scopes,
		AccountID:       c.AccountID,
		AccountName:     c.AccountName,
		ShopDomain:      c.ShopDomain,
		Status:          c.Status,
		LastError:       c.LastError,
		ExpiresAt:       c.ExpiresAt,
		LastSyncedAt:    c.LastSyncedAt,
		HasRefreshToken: c.HasRefreshToken(),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// HasRefreshToken returns true if a refresh token is stored.
func (c *Connection) HasRefreshToken() bool {
	return !c.RefreshToken.IsZero()
}

// NeedsRefresh returns true if the access token should be refreshed.
// Returns true if within 5 minutes of expiry.
func (c *Connection) NeedsRefresh() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Until(*c.ExpiresAt) < refreshWindow
}

// IsExpired returns true if the access token has expired.
func (c *Connection) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.ExpiresAt)
}
