package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// SessionKeyStore implements storage.SessionKeyStore using PostgreSQL.
type SessionKeyStore struct {
	pool *Pool
}

// NewSessionKeyStore creates a new SessionKeyStore.
func NewSessionKeyStore(pool *Pool) *SessionKeyStore {
	return &SessionKeyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionKeyStore = (*SessionKeyStore)(nil)

// Insert adds a new key. Returns ErrDuplicateKey if key_id exists.
func (s *SessionKeyStore) Insert(ctx context.Context, k *domain.SessionKey) error {
	if k == nil || k.ID == "" || k.UserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO session_keys (
			key_id, user_id, account_address, secret, public_key,
			permission_scope, status, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		k.ID, k.UserID, k.AccountAddress, k.Secret, k.PublicKey,
		k.PermissionScope, k.Status, k.ExpiresAt, k.CreatedAt,
	)
	if err != nil {
		return storeErr("insert session key", err)
	}
	return nil
}

// MostRecentKey retrieves the newest key for a user regardless of status.
// Returns ErrNotFound if not exists.
func (s *SessionKeyStore) MostRecentKey(ctx context.Context, userID string) (*domain.SessionKey, error) {
	query := `
		SELECT
			key_id, user_id, account_address, secret, public_key,
			permission_scope, status, expires_at, created_at
		FROM session_keys
		WHERE user_id = $1
		ORDER BY created_at DESC, key_id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, userID)
	k, err := scanSessionKey(row)
	if err != nil {
		return nil, storeErr("get most recent session key", err)
	}
	return k, nil
}

// ListByUser retrieves all keys for a user, newest first.
func (s *SessionKeyStore) ListByUser(ctx context.Context, userID string) ([]*domain.SessionKey, error) {
	query := `
		SELECT
			key_id, user_id, account_address, secret, public_key,
			permission_scope, status, expires_at, created_at
		FROM session_keys
		WHERE user_id = $1
		ORDER BY created_at DESC, key_id DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list session keys by user: %w", err)
	}
	defer rows.Close()

	return scanSessionKeys(rows)
}

// SetStatus transitions a key's status. Returns ErrNotFound if not exists.
func (s *SessionKeyStore) SetStatus(ctx context.Context, keyID string, status domain.SessionKeyStatus) error {
	if keyID == "" {
		return storage.ErrInvalidInput
	}

	query := `UPDATE session_keys SET status = $2 WHERE key_id = $1`

	tag, err := s.pool.Exec(ctx, query, keyID, status)
	if err != nil {
		return fmt.Errorf("set session key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanSessionKey scans a single row into a SessionKey.
func scanSessionKey(row pgx.Row) (*domain.SessionKey, error) {
	var k domain.SessionKey

	err := row.Scan(
		&k.ID, &k.UserID, &k.AccountAddress, &k.Secret, &k.PublicKey,
		&k.PermissionScope, &k.Status, &k.ExpiresAt, &k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &k, nil
}

// scanSessionKeys scans multiple rows into a slice of SessionKey.
func scanSessionKeys(rows pgx.Rows) ([]*domain.SessionKey, error) {
	var keys []*domain.SessionKey

	for rows.Next() {
		var k domain.SessionKey

		err := rows.Scan(
			&k.ID, &k.UserID, &k.AccountAddress, &k.Secret, &k.PublicKey,
			&k.PermissionScope, &k.Status, &k.ExpiresAt, &k.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session key row: %w", err)
		}

		keys = append(keys, &k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session key rows: %w", err)
	}

	return keys, nil
}
