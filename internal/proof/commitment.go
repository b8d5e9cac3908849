// Package proof derives the commitment hash that binds an on-chain
// rebalance to the market data and recommendation that justified it.
package proof

import (
	"fmt"
	"strings"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/felt"
)

// Commitment computes the deterministic proof hash for a decision.
//
// The hash covers a canonical pipe-delimited rendering of the snapshot
// and recommendation. Format stability matters more than readability:
// the same inputs must hash identically across releases, because the
// commitment is submitted on-chain and re-derived during audits.
func Commitment(snapshot *domain.MarketSnapshot, rec *domain.Recommendation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s|%.8f|%.8f|%.8f|%s", snapshot.Pair, snapshot.Price, snapshot.Volume24h, snapshot.Volatility, snapshot.Trend)
	fmt.Fprintf(&b, "|%s|%.4f", rec.Action, rec.Confidence)
	if rec.Range != nil {
		fmt.Fprintf(&b, "|%.8f|%.8f", rec.Range.Lower, rec.Range.Upper)
	}

	return felt.HashString(b.String())
}
