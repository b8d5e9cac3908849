package domain

// TradeAction is the action an AI recommendation proposes.
type TradeAction string

const (
	ActionRebalance       TradeAction = "REBALANCE"
	ActionAddLiquidity    TradeAction = "ADD_LIQUIDITY"
	ActionRemoveLiquidity TradeAction = "REMOVE_LIQUIDITY"
	ActionHold            TradeAction = "HOLD"
)

// PriceRange is a liquidity position's active price range.
type PriceRange struct {
	Lower float64
	Upper float64
}

// Recommendation is a structured trading recommendation.
// Range is present only for actions that reposition liquidity.
type Recommendation struct {
	Action     TradeAction
	Rationale  string
	Range      *PriceRange
	Confidence float64 // [0, 1]
}

// RequiresRange reports whether the action needs a price range.
func (a TradeAction) RequiresRange() bool {
	return a == ActionRebalance || a == ActionAddLiquidity
}
