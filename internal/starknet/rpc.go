// Package starknet provides the JSON-RPC contract-call client.
package starknet

import (
	"context"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/signer"
)

// Client defines the node RPC interface used by contract gateways.
type Client interface {
	// Call executes a read-only contract function and returns the raw
	// felt results. An empty result is returned as a nil slice.
	Call(ctx context.Context, req CallRequest) ([]string, error)

	// Invoke submits a state-changing contract call. A signer is
	// mandatory; Invoke fails with ErrNotAuthorized without one.
	// The returned receipt carries the accepted transaction hash with
	// status pending.
	Invoke(ctx context.Context, req InvokeRequest, s signer.Signer) (*TxReceipt, error)

	// TransactionReceipt looks up the receipt for a transaction hash.
	// Returns nil if the node does not know the transaction yet.
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// CallRequest describes a read-only contract call.
type CallRequest struct {
	ContractAddress string
	FunctionName    string
	Calldata        felt.Calldata
}

// InvokeRequest describes a state-changing contract call.
type InvokeRequest struct {
	ContractAddress string
	FunctionName    string
	Calldata        felt.Calldata
}

// TxReceipt is the node's acknowledgement of an accepted invoke.
type TxReceipt struct {
	TxHash string
}

// Receipt is the execution receipt of a mined transaction.
type Receipt struct {
	TxHash          string
	ExecutionStatus string
	RevertReason    string
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.ExecutionStatus == ExecutionSucceeded
}

// ExecutionSucceeded is the node's success marker in receipts.
const ExecutionSucceeded = "SUCCEEDED"
