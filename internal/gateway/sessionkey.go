package gateway

import (
	"context"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/starknet"
)

// SessionKey wraps the session key manager contract.
type SessionKey struct {
	client  starknet.Client
	address string
}

// NewSessionKey creates a session key gateway bound to the contract
// address.
func NewSessionKey(client starknet.Client, address string) *SessionKey {
	return &SessionKey{client: client, address: address}
}

// IsValid reports whether the chain considers the key live. Node
// trouble reads as not valid.
func (g *SessionKey) IsValid(ctx context.Context, keyHandle string) (bool, error) {
	result, err := g.client.Call(ctx, starknet.CallRequest{
		ContractAddress: g.address,
		FunctionName:    "is_valid",
		Calldata:        felt.Calldata{}.AppendString(keyHandle),
	})
	if err != nil {
		return false, readable(err)
	}
	if len(result) == 0 {
		return false, nil
	}
	v, err := felt.ToUint64(result[0])
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// GetPermissions returns the key's on-chain permission scope as a felt,
// or nil when unavailable.
func (g *SessionKey) GetPermissions(ctx context.Context, keyHandle string) (*string, error) {
	result, err := g.client.Call(ctx, starknet.CallRequest{
		ContractAddress: g.address,
		FunctionName:    "get_permissions",
		Calldata:        felt.Calldata{}.AppendString(keyHandle),
	})
	if err != nil {
		return nil, readable(err)
	}
	if len(result) == 0 {
		return nil, nil
	}
	scope := result[0]
	return &scope, nil
}
