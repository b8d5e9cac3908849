package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/gateway"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/storage"
)

// Authorization failures. Both mean the run must stop before any market
// data or model call is made.
var (
	// ErrNoActiveSessionKey means the user has no key that is active
	// and unexpired right now.
	ErrNoActiveSessionKey = errors.New("session: no active session key")

	// ErrInsufficientPermissions means the key exists but its on-chain
	// scope does not cover automated trading.
	ErrInsufficientPermissions = errors.New("session: insufficient permissions")
)

// IsAuthorizationError reports whether err is an authorization failure
// rather than an infrastructure error.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNoActiveSessionKey) || errors.Is(err, ErrInsufficientPermissions)
}

// Authority decides whether a user may trade, and with which signer.
type Authority struct {
	store         storage.SessionKeyStore
	registry      *gateway.SessionKey // may be nil; skips on-chain cross-check
	requiredScope string
	now           func() time.Time
}

// NewAuthority creates an authority. registry may be nil, in which case
// only the stored key record is consulted.
func NewAuthority(store storage.SessionKeyStore, registry *gateway.SessionKey, requiredScope string) *Authority {
	return &Authority{
		store:         store,
		registry:      registry,
		requiredScope: requiredScope,
		now:           time.Now,
	}
}

// Authorize returns the user's session key and a signer derived from it.
// Expiry is evaluated here, at authorization time: a key whose stored
// status is still active but whose expiry has passed does not authorize.
func (a *Authority) Authorize(ctx context.Context, userID string) (*domain.SessionKey, signer.Signer, error) {
	key, err := a.store.MostRecentKey(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrNoActiveSessionKey
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session key: %w", err)
	}

	if key.Status != domain.SessionKeyActive {
		return nil, nil, ErrNoActiveSessionKey
	}
	if key.IsExpired(a.now()) {
		return nil, nil, ErrNoActiveSessionKey
	}
	// A stored handle that no longer decodes to a curve point means the
	// row was tampered with or corrupted; it does not authorize.
	if err := signer.ValidatePublicHandle(key.PublicKey); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoActiveSessionKey, err)
	}

	if err := a.checkScope(ctx, key); err != nil {
		return nil, nil, err
	}

	sgn, err := signer.NewSessionSigner(key.AccountAddress, key.Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("derive session signer: %w", err)
	}

	return key, sgn, nil
}

// checkScope cross-checks the key's on-chain permission scope. When the
// node has no data (registry unreachable or scope absent) the stored
// record governs and the check is skipped.
func (a *Authority) checkScope(ctx context.Context, key *domain.SessionKey) error {
	if a.registry == nil || a.requiredScope == "" {
		return nil
	}

	scope, err := a.registry.GetPermissions(ctx, key.PublicKey)
	if err != nil {
		return fmt.Errorf("read on-chain permissions: %w", err)
	}
	if scope == nil {
		return nil
	}

	if *scope != felt.HashString(a.requiredScope) {
		return ErrInsufficientPermissions
	}
	return nil
}
