package domain

import "time"

// Market trend labels.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// MarketSnapshot is the market context for a single pipeline run.
// Snapshots are transient: produced fresh per run and never persisted
// (the decision archive keeps a flattened audit copy).
type MarketSnapshot struct {
	Pair       string
	Price      float64
	Volume24h  float64
	Volatility float64 // percent
	Trend      string
	AsOf       time.Time
}
