package predict

import (
	"context"

	"starknet-pilot/internal/domain"
)

// StubEngine is a scripted Engine for tests.
type StubEngine struct {
	Rec   *domain.Recommendation
	Err   error
	Count int
}

// Compile-time interface check.
var _ Engine = (*StubEngine)(nil)

func (s *StubEngine) Predict(_ context.Context, _ *domain.MarketSnapshot) (*domain.Recommendation, error) {
	s.Count++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Rec == nil {
		return holdFallback(), nil
	}
	copied := *s.Rec
	if s.Rec.Range != nil {
		r := *s.Rec.Range
		copied.Range = &r
	}
	return &copied, nil
}
