package gateway

import (
	"context"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/starknet"
)

// Rebalance wraps the rebalance executor contract.
type Rebalance struct {
	client  starknet.Client
	address string
}

// NewRebalance creates a rebalance gateway bound to the contract
// address.
func NewRebalance(client starknet.Client, address string) *Rebalance {
	return &Rebalance{client: client, address: address}
}

// ExecuteRebalance repositions a liquidity position's active range,
// binding the proof commitment into the calldata.
func (g *Rebalance) ExecuteRebalance(ctx context.Context, positionID, newMin, newMax uint64, proofHash string, s signer.Signer) (*starknet.TxReceipt, error) {
	return g.client.Invoke(ctx, starknet.InvokeRequest{
		ContractAddress: g.address,
		FunctionName:    "execute_rebalance",
		Calldata: felt.Calldata{}.
			AppendUint64(positionID).
			AppendUint64(newMin).
			AppendUint64(newMax).
			AppendFelt(proofHash),
	}, s)
}
