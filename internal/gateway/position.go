package gateway

import (
	"context"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/starknet"
)

// Position describes a liquidity position as stored on-chain.
type Position struct {
	Owner    string // felt address
	Pool     string // felt pool id
	Amount   uint64
	MinPrice uint64
	MaxPrice uint64
}

// Positions wraps the position manager contract.
type Positions struct {
	client  starknet.Client
	address string
}

// NewPositions creates a position gateway bound to the contract address.
func NewPositions(client starknet.Client, address string) *Positions {
	return &Positions{client: client, address: address}
}

// GetPosition returns the position, or nil when it does not exist or
// the node is unavailable.
func (g *Positions) GetPosition(ctx context.Context, positionID uint64) (*Position, error) {
	result, err := g.client.Call(ctx, starknet.CallRequest{
		ContractAddress: g.address,
		FunctionName:    "get_position",
		Calldata:        felt.Calldata{}.AppendUint64(positionID),
	})
	if err != nil {
		return nil, readable(err)
	}
	if len(result) < 5 {
		return nil, nil
	}

	pos := &Position{
		Owner: result[0],
		Pool:  result[1],
	}
	if pos.Amount, err = felt.ToUint64(result[2]); err != nil {
		return nil, err
	}
	if pos.MinPrice, err = felt.ToUint64(result[3]); err != nil {
		return nil, err
	}
	if pos.MaxPrice, err = felt.ToUint64(result[4]); err != nil {
		return nil, err
	}
	return pos, nil
}
