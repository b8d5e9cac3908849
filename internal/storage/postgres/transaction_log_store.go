package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// TransactionLogStore implements storage.TransactionLogStore using PostgreSQL.
type TransactionLogStore struct {
	pool *Pool
}

// NewTransactionLogStore creates a new TransactionLogStore.
func NewTransactionLogStore(pool *Pool) *TransactionLogStore {
	return &TransactionLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionLogStore = (*TransactionLogStore)(nil)

// Append adds a ledger row. Returns ErrDuplicateKey if record_id exists.
func (s *TransactionLogStore) Append(ctx context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transaction_log (
			record_id, user_id, action, rationale, tx_hash, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.UserID, r.Action, r.Rationale, r.TxHash, r.Status, r.CreatedAt,
	)
	if err != nil {
		return storeErr("append transaction record", err)
	}
	return nil
}

// ListRecent retrieves up to limit rows for a user, newest first.
func (s *TransactionLogStore) ListRecent(ctx context.Context, userID string, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			record_id, user_id, action, rationale, tx_hash, status, created_at
		FROM transaction_log
		WHERE user_id = $1
		ORDER BY created_at DESC, record_id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transaction records: %w", err)
	}
	defer rows.Close()

	return scanTransactionRecords(rows)
}

// scanTransactionRecords scans multiple rows into a slice of TransactionRecord.
func scanTransactionRecords(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord

	for rows.Next() {
		var r domain.TransactionRecord

		err := rows.Scan(
			&r.ID, &r.UserID, &r.Action, &r.Rationale, &r.TxHash, &r.Status, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction record rows: %w", err)
	}

	return records, nil
}
