package memory

import (
	"context"
	"sort"
	"sync"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// SessionKeyStore is an in-memory implementation of storage.SessionKeyStore.
type SessionKeyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SessionKey // keyed by key id
}

// NewSessionKeyStore creates a new in-memory session key store.
func NewSessionKeyStore() *SessionKeyStore {
	return &SessionKeyStore{
		data: make(map[string]*domain.SessionKey),
	}
}

// Insert adds a new key. Returns ErrDuplicateKey if the id exists.
func (s *SessionKeyStore) Insert(_ context.Context, k *domain.SessionKey) error {
	if k == nil || k.ID == "" || k.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[k.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	keyCopy := *k
	s.data[k.ID] = &keyCopy
	return nil
}

// MostRecentKey retrieves the newest key for a user regardless of status.
func (s *SessionKeyStore) MostRecentKey(_ context.Context, userID string) (*domain.SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *domain.SessionKey
	for _, k := range s.data {
		if k.UserID != userID {
			continue
		}
		if newest == nil || k.CreatedAt.After(newest.CreatedAt) {
			newest = k
		}
	}
	if newest == nil {
		return nil, storage.ErrNotFound
	}

	keyCopy := *newest
	return &keyCopy, nil
}

// ListByUser retrieves all keys for a user, newest first.
func (s *SessionKeyStore) ListByUser(_ context.Context, userID string) ([]*domain.SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SessionKey
	for _, k := range s.data {
		if k.UserID == userID {
			keyCopy := *k
			result = append(result, &keyCopy)
		}
	}

	// Sort by created_at DESC
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// SetStatus transitions a key's status. Returns ErrNotFound if not exists.
func (s *SessionKeyStore) SetStatus(_ context.Context, keyID string, status domain.SessionKeyStatus) error {
	if keyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, exists := s.data[keyID]
	if !exists {
		return storage.ErrNotFound
	}

	k.Status = status
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SessionKeyStore = (*SessionKeyStore)(nil)
