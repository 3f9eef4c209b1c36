package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Ensure MembershipStore implements the interface.
var _ driven.MembershipStore = (*MembershipStore)(nil)

// MembershipStore implements driven.MembershipStore using PostgreSQL.
type MembershipStore struct {
	db *sql.DB
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// GetRole returns the user's role in the organization.
func (s *MembershipStore) GetRole(ctx context.Context, organizationID, userID string) (domain.Role, error) {
	var role domain.Role
	err := s.db.QueryRowContext(ctx,
		"SELECT role FROM organization_members WHERE organization_id = $1 AND user_id = $2",
		organizationID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get membership: %w", err)
	}
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return role, nil
}
