// Package marketdata supplies market snapshots and spot prices for the
// supported trading pairs.
package marketdata

import (
	"context"
	"errors"
	"strings"

	"starknet-pilot/internal/domain"
)

// ErrNoData is returned when the provider has no data for a pair.
var ErrNoData = errors.New("no market data for pair")

// Provider supplies market state for a trading pair.
type Provider interface {
	// Snapshot returns the current market snapshot for a pair.
	Snapshot(ctx context.Context, pair string) (*domain.MarketSnapshot, error)

	// Price returns the current spot price for a pair.
	Price(ctx context.Context, pair string) (float64, error)
}

// SymbolFor converts a pair like "ETH/USDC" to the exchange symbol
// "ETHUSDC".
func SymbolFor(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}
