package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// unlinkListingsQuery clears sync fields on listings linked to a provider.
// external_id is kept as a reference to the former marketplace listing.
const unlinkListingsQuery = `
	UPDATE listings
	SET sync_status = $1, external_url = NULL, last_synced_at = NULL, updated_at = NOW()
	WHERE organization_id = $2 AND provider = $3
`

// unlinkListings soft-unlinks the organization's listings for a provider
// and returns how many were updated.
func unlinkListings(ctx context.Context, q execer, organizationID string, provider domain.ProviderType) (int64, error) {
	result, err := q.ExecContext(ctx, unlinkListingsQuery, domain.ListingSyncStatusUnsynced, organizationID, provider)
	if err != nil {
		return 0, fmt.Errorf("unlink listings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}
