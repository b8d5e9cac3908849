// Package stub provides a scripted starknet.Client for testing.
package stub

import (
	"context"
	"sync"

	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/starknet"
)

// Client implements starknet.Client with scripted results and call
// counters so tests can assert which remote calls were (not) made.
type Client struct {
	mu sync.Mutex

	// CallResults maps "contract/function" to felt results.
	CallResults map[string][]string
	// CallErr, when set, fails every Call.
	CallErr error

	// InvokeReceipt is returned by successful invokes.
	InvokeReceipt *starknet.TxReceipt
	// InvokeErr, when set, fails every Invoke.
	InvokeErr error

	// Receipts maps tx hash to receipt.
	Receipts map[string]*starknet.Receipt

	CallCount    int
	InvokeCount  int
	ReceiptCount int

	// LastInvoke records the most recent invoke request.
	LastInvoke *starknet.InvokeRequest
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		CallResults: make(map[string][]string),
		Receipts:    make(map[string]*starknet.Receipt),
	}
}

// Compile-time interface check.
var _ starknet.Client = (*Client)(nil)

// Call returns the scripted result for contract/function.
func (c *Client) Call(_ context.Context, req starknet.CallRequest) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	if c.CallErr != nil {
		return nil, c.CallErr
	}
	return c.CallResults[req.ContractAddress+"/"+req.FunctionName], nil
}

// Invoke returns the scripted receipt, honoring the nil-signer contract.
func (c *Client) Invoke(_ context.Context, req starknet.InvokeRequest, s signer.Signer) (*starknet.TxReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.InvokeCount++
	reqCopy := req
	c.LastInvoke = &reqCopy

	if s == nil {
		return nil, starknet.ErrNotAuthorized
	}
	if c.InvokeErr != nil {
		return nil, c.InvokeErr
	}
	if c.InvokeReceipt != nil {
		return c.InvokeReceipt, nil
	}
	return &starknet.TxReceipt{TxHash: "0xstub"}, nil
}

// TransactionReceipt returns the scripted receipt for a hash, nil when
// unknown.
func (c *Client) TransactionReceipt(_ context.Context, txHash string) (*starknet.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ReceiptCount++
	return c.Receipts[txHash], nil
}
