package signer

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// SessionSigner signs with a session key's 32-byte seed. The seed is held
// only for the lifetime of the signer, which callers must keep short:
// construct immediately before signing, discard right after.
type SessionSigner struct {
	account string
	key     ed25519.PrivateKey
}

// NewSessionSigner derives a signer from a hex-encoded 32-byte seed.
func NewSessionSigner(accountAddress, seedHex string) (*SessionSigner, error) {
	if accountAddress == "" {
		return nil, errors.New("signer: account address required")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("signer: decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &SessionSigner{
		account: accountAddress,
		key:     ed25519.NewKeyFromSeed(seed),
	}, nil
}

// AccountAddress returns the bound account address.
func (s *SessionSigner) AccountAddress() string { return s.account }

// Sign signs the digest with the session key.
func (s *SessionSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("signer: digest must be 32 bytes, got %d", len(digest))
	}
	return ed25519.Sign(s.key, digest), nil
}

// PublicHandle returns the base58-encoded public key for display and
// storage. The seed itself never leaves the signer.
func (s *SessionSigner) PublicHandle() string {
	pub := s.key.Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

// ValidatePublicHandle checks that a stored base58 public handle decodes
// to a canonical point on the edwards25519 curve.
func ValidatePublicHandle(handle string) error {
	raw, err := base58.Decode(handle)
	if err != nil {
		return fmt.Errorf("signer: decode public handle: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("signer: public handle must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("signer: public handle not on curve: %w", err)
	}
	return nil
}
