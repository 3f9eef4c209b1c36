package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

const connectionColumns = `
	id, organization_id, provider,
	access_token_ciphertext, access_token_iv,
	refresh_token_ciphertext, refresh_token_iv,
	token_type, expires_at, scopes,
	account_id, account_name, shop_domain,
	status, last_error, last_synced_at,
	connected_by, created_at, updated_at`

// upsertConnectionQuery writes one row per (organization_id, provider).
// A conflicting row is overwritten field for field; id and created_at are
// kept and returned.
const upsertConnectionQuery = `
	INSERT INTO provider_connections (` + connectionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (organization_id, provider) DO UPDATE SET
		access_token_ciphertext = EXCLUDED.access_token_ciphertext,
		access_token_iv = EXCLUDED.access_token_iv,
		refresh_token_ciphertext = EXCLUDED.refresh_token_ciphertext,
		refresh_token_iv = EXCLUDED.refresh_token_iv,
		token_type = EXCLUDED.token_type,
		expires_at = EXCLUDED.expires_at,
		scopes = EXCLUDED.scopes,
		account_id = EXCLUDED.account_id,
		account_name = EXCLUDED.account_name,
		shop_domain = EXCLUDED.shop_domain,
		status = EXCLUDED.status,
		last_error = EXCLUDED.last_error,
		last_synced_at = EXCLUDED.last_synced_at,
		connected_by = EXCLUDED.connected_by,
		updated_at = EXCLUDED.updated_at
	RETURNING id, created_at
`

// ConnectionStore implements driven.ConnectionStore using PostgreSQL.
// Token columns hold vault ciphertext; this store never decrypts.
type ConnectionStore struct {
	db *DB
}

// NewConnectionStore creates a new PostgreSQL-backed connection store.
func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// Upsert stores a connection keyed by (organization_id, provider).
// On conflict every column except id and created_at is replaced.
func (s *ConnectionStore) Upsert(ctx context.Context, conn *domain.Connection) error {
	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	if conn.Status == "" {
		conn.Status = domain.ConnectionStatusIdle
	}

	var refreshCiphertext, refreshIV []byte
	if !conn.RefreshToken.IsZero() {
		refreshCiphertext = conn.RefreshToken.Ciphertext
		refreshIV = conn.RefreshToken.IV
	}

	err := s.db.QueryRowContext(ctx, upsertConnectionQuery,
		conn.ID,
		conn.OrganizationID,
		conn.Provider,
		conn.AccessToken.Ciphertext,
		conn.AccessToken.IV,
		refreshCiphertext,
		refreshIV,
		nullString(conn.TokenType),
		nullTime(conn.ExpiresAt),
		pq.Array(nonNil(conn.Scopes)),
		nullString(conn.AccountID),
		nullString(conn.AccountName),
		nullString(conn.ShopDomain),
		conn.Status,
		nullString(conn.LastError),
		nullTime(conn.LastSyncedAt),
		conn.ConnectedBy,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}

	return nil
}

// Get retrieves the connection for an organization and provider.
func (s *ConnectionStore) Get(ctx context.Context, organizationID string, provider domain.ProviderType) (*domain.Connection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM provider_connections
		WHERE organization_id = $1 AND provider = $2`

	conn, err := scanConnection(s.db.QueryRowContext(ctx, query, organizationID, provider))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

// ListByOrganization retrieves all connections of an organization.
func (s *ConnectionStore) ListByOrganization(ctx context.Context, organizationID string) ([]*domain.Connection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM provider_connections
		WHERE organization_id = $1
		ORDER BY provider`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conns []*domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return conns, nil
}

const deleteConnectionQuery = `DELETE FROM provider_connections WHERE organization_id = $1 AND provider = $2`

// Disconnect deletes the connection and soft-unlinks its listings in one
// transaction. Nothing changes when either statement fails.
func (s *ConnectionStore) Disconnect(ctx context.Context, organizationID string, provider domain.ProviderType) (int64, error) {
	var unlinked int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, deleteConnectionQuery, organizationID, provider)
		if err != nil {
			return fmt.Errorf("delete connection: %w", err)
		}
		if err := expectRows(result); err != nil {
			return err
		}

		unlinked, err = unlinkListings(ctx, tx, organizationID, provider)
		return err
	})
	if err != nil {
		return 0, err
	}
	return unlinked, nil
}

// UpdateTokens replaces the encrypted token set after a refresh.
func (s *ConnectionStore) UpdateTokens(ctx context.Context, id string, access domain.EncryptedValue, refresh *domain.EncryptedValue, expiresAt *time.Time) error {
	var refreshCiphertext, refreshIV []byte
	if !refresh.IsZero() {
		refreshCiphertext = refresh.Ciphertext
		refreshIV = refresh.IV
	}

	query := `
		UPDATE provider_connections
		SET access_token_ciphertext = $1, access_token_iv = $2,
			refresh_token_ciphertext = $3, refresh_token_iv = $4,
			expires_at = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(ctx, query,
		access.Ciphertext, access.IV,
		refreshCiphertext, refreshIV,
		nullTime(expiresAt), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return expectRows(result)
}

// UpdateStatus sets the sync status and last error message.
func (s *ConnectionStore) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error {
	query := `
		UPDATE provider_connections
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, nullString(lastError), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return expectRows(result)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	var conn domain.Connection
	var refreshCiphertext, refreshIV []byte
	var tokenType, accountID, accountName, shopDomain, lastError sql.NullString
	var expiresAt, lastSyncedAt sql.NullTime
	var scopes []string

	err := row.Scan(
		&conn.ID,
		&conn.OrganizationID,
		&conn.Provider,
		&conn.AccessToken.Ciphertext,
		&conn.AccessToken.IV,
		&refreshCiphertext,
		&refreshIV,
		&tokenType,
		&expiresAt,
		pq.Array(&scopes),
		&accountID,
		&accountName,
		&shopDomain,
		&conn.Status,
		&lastError,
		&lastSyncedAt,
		&conn.ConnectedBy,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(refreshCiphertext) > 0 {
		conn.RefreshToken = &domain.EncryptedValue{Ciphertext: refreshCiphertext, IV: refreshIV}
	}
	conn.TokenType = tokenType.String
	conn.ExpiresAt = timePtr(expiresAt)
	conn.Scopes = scopes
	conn.AccountID = accountID.String
	conn.AccountName = accountName.String
	conn.ShopDomain = shopDomain.String
	conn.LastError = lastError.String
	conn.LastSyncedAt = timePtr(lastSyncedAt)

	return &conn, nil
}

func expectRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
