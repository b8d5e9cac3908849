package domain

// IntentAction classifies what a transcript asks the system to do.
type IntentAction string

const (
	ActionExecuteStrategy IntentAction = "EXECUTE_STRATEGY"
	ActionCheckStatus     IntentAction = "CHECK_STATUS"
	ActionUnknown         IntentAction = "UNKNOWN"
)

// Supported trading pairs.
const (
	PairETHUSDC = "ETH/USDC"
	PairBTCUSDC = "BTC/USDC"
)

// Intent is the structured form of a free-text command.
type Intent struct {
	Action IntentAction
	Pair   string
}
