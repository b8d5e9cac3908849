// Package session manages delegated session keys and decides whether a
// user is authorized for automated trading.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/observability"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/storage"
)

// DefaultTTL is how long a new session key stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// ErrUnknownKey is returned when revoking a key that does not exist.
var ErrUnknownKey = errors.New("session: unknown key")

// Service creates, lists and revokes session keys.
type Service struct {
	store storage.SessionKeyStore
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a session key service. ttl <= 0 uses DefaultTTL.
func NewService(store storage.SessionKeyStore, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "session").Logger(),
		now:   time.Now,
	}
}

// Create mints a new session key bound to the user's on-chain account.
// The returned key includes the secret seed exactly once; persisted
// copies keep it only for signing, and it is never logged.
func (s *Service) Create(ctx context.Context, userID, accountAddress, scope string) (*domain.SessionKey, error) {
	if userID == "" || accountAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate session key seed: %w", err)
	}
	secret := hex.EncodeToString(seed)

	sgn, err := signer.NewSessionSigner(accountAddress, secret)
	if err != nil {
		return nil, fmt.Errorf("derive session signer: %w", err)
	}

	now := s.now().UTC()
	key := &domain.SessionKey{
		ID:              uuid.NewString(),
		UserID:          userID,
		AccountAddress:  accountAddress,
		Secret:          secret,
		PublicKey:       sgn.PublicHandle(),
		PermissionScope: scope,
		Status:          domain.SessionKeyActive,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
	}

	if err := s.store.Insert(ctx, key); err != nil {
		return nil, fmt.Errorf("store session key: %w", err)
	}

	observability.RecordSessionKeyCreated()
	s.log.Info().
		Str("user_id", userID).
		Str("key_id", key.ID).
		Str("public_key", key.PublicKey).
		Time("expires_at", key.ExpiresAt).
		Msg("session key created")

	return key, nil
}

// List returns the user's keys, newest first, with secrets redacted.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.SessionKey, error) {
	keys, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	now := s.now()
	for _, k := range keys {
		k.Secret = ""
		// Expiry is a view-time classification, not a stored transition.
		if k.Status == domain.SessionKeyActive && k.IsExpired(now) {
			k.Status = domain.SessionKeyExpired
		}
	}
	return keys, nil
}

// Revoke soft-revokes a key. The row survives for the audit trail.
func (s *Service) Revoke(ctx context.Context, keyID string) error {
	err := s.store.SetStatus(ctx, keyID, domain.SessionKeyRevoked)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUnknownKey
	}
	if err != nil {
		return fmt.Errorf("revoke session key: %w", err)
	}

	observability.RecordSessionKeyRevoked()
	s.log.Info().Str("key_id", keyID).Msg("session key revoked")
	return nil
}
