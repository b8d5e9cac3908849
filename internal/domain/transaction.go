package domain

import "time"

// TxStatus is the observed status of a submitted transaction.
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
)

// ExecutionResult is the outcome of one on-chain invoke attempt.
// TxHash is nil only when Status is TxFailed.
type ExecutionResult struct {
	TxHash *string
	Status TxStatus
	Error  string
}

// TransactionRecord is an append-only ledger entry, one per pipeline run
// that reaches the submission step. HOLD outcomes are not recorded.
type TransactionRecord struct {
	ID        string
	UserID    string
	Action    TradeAction
	Rationale string
	TxHash    *string
	Status    TxStatus
	CreatedAt time.Time
}

// DecisionSnapshot is the audit row archived for every pipeline run that
// produced a recommendation, keyed back to the proof commitment.
type DecisionSnapshot struct {
	UserID     string
	Pair       string
	Price      float64
	Volume24h  float64
	Volatility float64
	Trend      string
	Action     TradeAction
	Confidence float64
	ProofHash  string
	CreatedAt  time.Time
}
