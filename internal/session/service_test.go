package session

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/storage/memory"
)

func TestService_Create(t *testing.T) {
	store := memory.NewSessionKeyStore()
	svc := NewService(store, 0, zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	key, err := svc.Create(ctx, "alice", "0x4a1b", "modify_position")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if key.ID == "" {
		t.Error("empty key id")
	}
	if key.UserID != "alice" || key.AccountAddress != "0x4a1b" {
		t.Errorf("identity fields wrong: %+v", key)
	}
	if key.Status != domain.SessionKeyActive {
		t.Errorf("Status = %s, want active", key.Status)
	}
	if !key.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", key.ExpiresAt, now.Add(DefaultTTL))
	}

	seed, err := hex.DecodeString(key.Secret)
	if err != nil || len(seed) != 32 {
		t.Errorf("Secret is not a 32-byte hex seed: %q", key.Secret)
	}
	if err := signer.ValidatePublicHandle(key.PublicKey); err != nil {
		t.Errorf("public handle invalid: %v", err)
	}

	// The stored row must match what was returned.
	stored, err := store.MostRecentKey(ctx, "alice")
	if err != nil {
		t.Fatalf("MostRecentKey failed: %v", err)
	}
	if stored.ID != key.ID || stored.PublicKey != key.PublicKey {
		t.Errorf("stored key differs: %+v", stored)
	}
}

func TestService_CreateRejectsMissingIdentity(t *testing.T) {
	svc := NewService(memory.NewSessionKeyStore(), 0, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "0x4a1b", "modify_position"); err == nil {
		t.Error("expected error for empty user")
	}
	if _, err := svc.Create(ctx, "alice", "", "modify_position"); err == nil {
		t.Error("expected error for empty account address")
	}
}

func TestService_ListRedactsSecrets(t *testing.T) {
	store := memory.NewSessionKeyStore()
	svc := NewService(store, 0, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "0x4a1b", "modify_position"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	keys, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].Secret != "" {
		t.Error("List leaked the secret")
	}

	// The stored secret survives redaction of the listing copy.
	stored, err := store.MostRecentKey(ctx, "alice")
	if err != nil {
		t.Fatalf("MostRecentKey failed: %v", err)
	}
	if stored.Secret == "" {
		t.Error("stored secret was erased")
	}
}

func TestService_ListClassifiesExpired(t *testing.T) {
	store := memory.NewSessionKeyStore()
	svc := NewService(store, time.Hour, zerolog.Nop())
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "0x4a1b", "modify_position"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Move past expiry.
	svc.now = func() time.Time { return created.Add(2 * time.Hour) }

	keys, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if keys[0].Status != domain.SessionKeyExpired {
		t.Errorf("Status = %s, want expired", keys[0].Status)
	}

	// The stored status is untouched; expiry is view-time only.
	stored, _ := store.MostRecentKey(ctx, "alice")
	if stored.Status != domain.SessionKeyActive {
		t.Errorf("stored status = %s, want active", stored.Status)
	}
}

func TestService_Revoke(t *testing.T) {
	store := memory.NewSessionKeyStore()
	svc := NewService(store, 0, zerolog.Nop())
	ctx := context.Background()

	key, err := svc.Create(ctx, "alice", "0x4a1b", "modify_position")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Revoke(ctx, key.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	stored, _ := store.MostRecentKey(ctx, "alice")
	if stored.Status != domain.SessionKeyRevoked {
		t.Errorf("Status = %s, want revoked", stored.Status)
	}
}

func TestService_RevokeUnknownKey(t *testing.T) {
	svc := NewService(memory.NewSessionKeyStore(), 0, zerolog.Nop())

	err := svc.Revoke(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}
