package domain

import "time"

// SessionKeyStatus is the lifecycle state of a session key.
// Keys are never deleted: revocation and expiry are status transitions
// so the audit trail survives.
type SessionKeyStatus string

const (
	SessionKeyActive  SessionKeyStatus = "active"
	SessionKeyRevoked SessionKeyStatus = "revoked"
	SessionKeyExpired SessionKeyStatus = "expired"
)

// SessionKey is a delegated, time-boxed credential that authorizes
// automated trading on a user's behalf. Secret holds the hex-encoded
// 32-byte signing seed; it is opaque to every layer except the signer
// and must never be logged.
type SessionKey struct {
	ID              string
	UserID          string
	AccountAddress  string // on-chain account the key acts for
	Secret          string
	PublicKey       string // base58 handle of the derived public key
	PermissionScope string // opaque scope hash
	Status          SessionKeyStatus
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// IsExpired reports whether the key's expiry has passed at the given time.
// An expired key may still carry status=active; expiry is evaluated at
// authorization time, not at storage time.
func (k *SessionKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}
