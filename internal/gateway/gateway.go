// Package gateway provides typed wrappers over the node RPC client, one
// per deployed contract. Each gateway is bound to a fixed contract
// address at construction and exposes only the operations meaningful for
// its domain.
//
// Read paths never fail on node trouble: an unreachable node, a
// malformed envelope or an absent value all surface as nil so callers
// branch on presence, not on error shape. Invoke paths propagate
// classified errors.
package gateway

import (
	"errors"

	"starknet-pilot/internal/starknet"
)

// readable swallows RPC failures on read paths per the data-unavailable
// contract. Any other error is genuine.
func readable(err error) error {
	var rpcErr *starknet.RPCError
	if errors.As(err, &rpcErr) {
		return nil
	}
	return err
}
