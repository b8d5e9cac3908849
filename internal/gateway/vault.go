package gateway

import (
	"context"
	"math/big"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/starknet"
)

// Vault wraps the vault manager contract.
type Vault struct {
	client  starknet.Client
	address string
}

// NewVault creates a vault gateway bound to the contract address.
func NewVault(client starknet.Client, address string) *Vault {
	return &Vault{client: client, address: address}
}

// GetBalance returns the user's vault balance, or nil when the balance
// is unavailable.
func (g *Vault) GetBalance(ctx context.Context, userAddress string) (*big.Int, error) {
	result, err := g.client.Call(ctx, starknet.CallRequest{
		ContractAddress: g.address,
		FunctionName:    "get_balance",
		Calldata:        felt.Calldata{}.AppendFelt(userAddress),
	})
	if err != nil {
		return nil, readable(err)
	}
	if len(result) == 0 {
		return nil, nil
	}
	balance, err := felt.ToBig(result[0])
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// Deposit moves funds into the vault.
func (g *Vault) Deposit(ctx context.Context, amount uint64, s signer.Signer) (*starknet.TxReceipt, error) {
	return g.client.Invoke(ctx, starknet.InvokeRequest{
		ContractAddress: g.address,
		FunctionName:    "deposit",
		Calldata:        felt.Calldata{}.AppendUint64(amount),
	}, s)
}

// Withdraw moves funds out of the vault.
func (g *Vault) Withdraw(ctx context.Context, amount uint64, s signer.Signer) (*starknet.TxReceipt, error) {
	return g.client.Invoke(ctx, starknet.InvokeRequest{
		ContractAddress: g.address,
		FunctionName:    "withdraw",
		Calldata:        felt.Calldata{}.AppendUint64(amount),
	}, s)
}
