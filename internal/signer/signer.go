// Package signer provides the signing capability used to authorize
// state-changing contract invokes. Key custody beyond a session key's
// ephemeral seed (wallets, HSMs) is out of scope.
package signer

import "context"

// Signer signs an invoke digest on behalf of an on-chain account.
type Signer interface {
	// AccountAddress is the account the signature acts for.
	AccountAddress() string

	// Sign signs a 32-byte digest and returns the raw signature.
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}
