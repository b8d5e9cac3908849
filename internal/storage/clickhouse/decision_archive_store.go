package clickhouse

import (
	"context"
	"fmt"
	"time"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// DecisionArchiveStore implements storage.DecisionArchive using ClickHouse.
// Rows are flattened audit records; MergeTree does not enforce uniqueness
// and none is needed here.
type DecisionArchiveStore struct {
	conn *Conn
}

// NewDecisionArchiveStore creates a new DecisionArchiveStore.
func NewDecisionArchiveStore(conn *Conn) *DecisionArchiveStore {
	return &DecisionArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DecisionArchive = (*DecisionArchiveStore)(nil)

// Append adds an audit row.
func (s *DecisionArchiveStore) Append(ctx context.Context, snap *domain.DecisionSnapshot) error {
	if snap == nil || snap.UserID == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO decision_snapshots (
			user_id, pair, price, volume_24h, volatility, trend,
			action, confidence, proof_hash, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		snap.UserID, snap.Pair, snap.Price, snap.Volume24h, snap.Volatility, snap.Trend,
		string(snap.Action), snap.Confidence, snap.ProofHash, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// RecentByUser retrieves up to limit rows for a user, newest first.
func (s *DecisionArchiveStore) RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.DecisionSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT user_id, pair, price, volume_24h, volatility, trend,
		       action, confidence, proof_hash, created_at
		FROM decision_snapshots
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, userID, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query decision snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.DecisionSnapshot
	for rows.Next() {
		var snap domain.DecisionSnapshot
		var action string
		var createdAt time.Time

		err := rows.Scan(
			&snap.UserID, &snap.Pair, &snap.Price, &snap.Volume24h, &snap.Volatility, &snap.Trend,
			&action, &snap.Confidence, &snap.ProofHash, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision snapshot row: %w", err)
		}

		snap.Action = domain.TradeAction(action)
		snap.CreatedAt = createdAt
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision snapshot rows: %w", err)
	}

	return snaps, nil
}
