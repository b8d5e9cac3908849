// Package predict produces structured trading recommendations from
// market snapshots.
package predict

import (
	"context"

	"starknet-pilot/internal/domain"
)

// Engine turns a market snapshot into a trading recommendation.
//
// Implementations are fail-soft: when the model provider is down or
// returns garbage, Predict returns a HOLD recommendation with zero
// confidence rather than an error, so the pipeline can finish the run
// and record the outcome. Errors are reserved for caller-side
// cancellation.
type Engine interface {
	Predict(ctx context.Context, snapshot *domain.MarketSnapshot) (*domain.Recommendation, error)
}

// holdFallback is the recommendation used when no usable prediction
// could be obtained.
func holdFallback() *domain.Recommendation {
	return &domain.Recommendation{
		Action:     domain.ActionHold,
		Rationale:  "prediction unavailable",
		Confidence: 0,
	}
}
