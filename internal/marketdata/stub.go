package marketdata

import (
	"context"

	"starknet-pilot/internal/domain"
)

// StubProvider is a scripted Provider for tests.
type StubProvider struct {
	Snapshots map[string]*domain.MarketSnapshot // keyed by pair
	Prices    map[string]float64                // keyed by pair
	Err       error

	SnapshotCount int
	PriceCount    int
}

// Compile-time interface check.
var _ Provider = (*StubProvider)(nil)

func (s *StubProvider) Snapshot(_ context.Context, pair string) (*domain.MarketSnapshot, error) {
	s.SnapshotCount++
	if s.Err != nil {
		return nil, s.Err
	}
	snap, ok := s.Snapshots[pair]
	if !ok {
		return nil, ErrNoData
	}
	copied := *snap
	return &copied, nil
}

func (s *StubProvider) Price(_ context.Context, pair string) (float64, error) {
	s.PriceCount++
	if s.Err != nil {
		return 0, s.Err
	}
	price, ok := s.Prices[pair]
	if !ok {
		return 0, ErrNoData
	}
	return price, nil
}
