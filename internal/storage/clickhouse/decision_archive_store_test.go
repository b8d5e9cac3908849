package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
	chstore "starknet-pilot/internal/storage/clickhouse"
)

func TestDecisionArchiveStore_AppendAndRecent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewDecisionArchiveStore(conn)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snaps := []*domain.DecisionSnapshot{
		{
			UserID: "alice", Pair: "ETH/USDC", Price: 2010.5, Volume24h: 1.2e9,
			Volatility: 0.031, Trend: "bullish", Action: domain.ActionRebalance,
			Confidence: 0.85, ProofHash: "0xaaa", CreatedAt: base,
		},
		{
			UserID: "alice", Pair: "ETH/USDC", Price: 1995.0, Volume24h: 1.1e9,
			Volatility: 0.012, Trend: "neutral", Action: domain.ActionHold,
			Confidence: 0.4, ProofHash: "0xbbb", CreatedAt: base.Add(time.Minute),
		},
		{
			UserID: "bob", Pair: "BTC/USDC", Price: 64200, Volume24h: 3.4e9,
			Volatility: 0.022, Trend: "bearish", Action: domain.ActionRemoveLiquidity,
			Confidence: 0.75, ProofHash: "0xccc", CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, snap := range snaps {
		require.NoError(t, store.Append(ctx, snap))
	}

	rows, err := store.RecentByUser(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "0xbbb", rows[0].ProofHash)
	assert.Equal(t, domain.ActionHold, rows[0].Action)
	assert.Equal(t, "0xaaa", rows[1].ProofHash)
	assert.InDelta(t, 2010.5, rows[1].Price, 1e-9)
	assert.Equal(t, "bullish", rows[1].Trend)
}

func TestDecisionArchiveStore_RecentLimit(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewDecisionArchiveStore(conn)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, &domain.DecisionSnapshot{
			UserID: "alice", Pair: "ETH/USDC", Price: 2000 + float64(i),
			Trend: "neutral", Action: domain.ActionHold, Confidence: 0.5,
			ProofHash: "0x0", CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	rows, err := store.RecentByUser(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.InDelta(t, 2004, rows[0].Price, 1e-9)
}

func TestDecisionArchiveStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewDecisionArchiveStore(conn)
	ctx := context.Background()

	err := store.Append(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
