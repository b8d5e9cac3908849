package memory

import (
	"context"
	"sort"
	"sync"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// TransactionLogStore is an in-memory implementation of
// storage.TransactionLogStore.
type TransactionLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionRecord // keyed by record id
}

// NewTransactionLogStore creates a new in-memory transaction log store.
func NewTransactionLogStore() *TransactionLogStore {
	return &TransactionLogStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

// Append adds a ledger row. Returns ErrDuplicateKey if the id exists.
func (s *TransactionLogStore) Append(_ context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	s.data[r.ID] = &recordCopy
	return nil
}

// ListRecent retrieves up to limit rows for a user, newest first.
func (s *TransactionLogStore) ListRecent(_ context.Context, userID string, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, r := range s.data {
		if r.UserID == userID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	// Sort by created_at DESC
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TransactionLogStore = (*TransactionLogStore)(nil)
