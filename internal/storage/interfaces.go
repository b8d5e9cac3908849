package storage

import (
	"context"

	"starknet-pilot/internal/domain"
)

// SessionKeyStore provides access to session_keys storage.
// Keys are append-only apart from status transitions.
type SessionKeyStore interface {
	// Insert adds a new key. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, k *domain.SessionKey) error

	// MostRecentKey retrieves the most recently created key for a
	// user, regardless of status. Returns ErrNotFound if none exists.
	MostRecentKey(ctx context.Context, userID string) (*domain.SessionKey, error)

	// ListByUser retrieves all keys for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.SessionKey, error)

	// SetStatus transitions a key's status. Returns ErrNotFound if the
	// key does not exist.
	SetStatus(ctx context.Context, keyID string, status domain.SessionKeyStatus) error
}

// TransactionLogStore provides access to the append-only transaction
// ledger.
type TransactionLogStore interface {
	// Append adds a ledger row. Returns ErrDuplicateKey if the id
	// exists.
	Append(ctx context.Context, r *domain.TransactionRecord) error

	// ListRecent retrieves up to limit rows for a user, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.TransactionRecord, error)
}

// DecisionArchive stores flattened audit rows for pipeline runs that
// produced a recommendation. Writes are best-effort: callers log
// failures and move on.
type DecisionArchive interface {
	Append(ctx context.Context, s *domain.DecisionSnapshot) error

	// RecentByUser returns up to limit rows for a user, newest first.
	// Returns ErrInvalidInput if limit is not positive.
	RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.DecisionSnapshot, error)
}
