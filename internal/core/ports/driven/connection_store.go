package driven

import (
	"context"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// ConnectionStore persists provider connections.
// Token fields arrive already encrypted; the store never sees plaintext tokens.
type ConnectionStore interface {
	// Upsert stores a connection keyed by (organization, provider).
	// An existing row is overwritten field-for-field, keeping its ID and CreatedAt.
	// On return conn.ID and conn.CreatedAt reflect the stored row.
	Upsert(ctx context.Context, conn *domain.Connection) error

	// Get retrieves the connection for an organization and provider.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, organizationID string, provider domain.ProviderType) (*domain.Connection, error)

	// ListByOrganization retrieves all connections of an organization.
	ListByOrganization(ctx context.Context, organizationID string) ([]*domain.Connection, error)

	// Disconnect deletes the connection and soft-unlinks the organization's
	// listings for the provider (see domain.Listing.Unlink) as one atomic
	// change. On error nothing is modified.
	// Returns the number of listings unlinked, or domain.ErrNotFound if no
	// connection exists.
	Disconnect(ctx context.Context, organizationID string, provider domain.ProviderType) (unlinked int64, err error)

	// UpdateTokens replaces the encrypted token set after a refresh.
	UpdateTokens(ctx context.Context, id string, access domain.EncryptedValue, refresh *domain.EncryptedValue, expiresAt *time.Time) error

	// UpdateStatus sets the sync status and last error message.
	UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error
}

// MembershipStore resolves a user's role within an organization.
type MembershipStore interface {
	// GetRole returns the user's role.
	// Returns domain.ErrNotFound if the user is not a member.
	GetRole(ctx context.Context, organizationID, userID string) (domain.Role, error)
}
