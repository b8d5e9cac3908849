package memory

import (
	"context"
	"sort"
	"sync"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/storage"
)

// DecisionArchive is an in-memory implementation of storage.DecisionArchive.
type DecisionArchive struct {
	mu   sync.RWMutex
	data []*domain.DecisionSnapshot
}

// NewDecisionArchive creates a new in-memory decision archive.
func NewDecisionArchive() *DecisionArchive {
	return &DecisionArchive{}
}

// Append adds an audit row.
func (s *DecisionArchive) Append(_ context.Context, snap *domain.DecisionSnapshot) error {
	if snap == nil || snap.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.data = append(s.data, &snapCopy)
	return nil
}

// RecentByUser returns up to limit rows for a user, newest first.
func (s *DecisionArchive) RecentByUser(_ context.Context, userID string, limit int) ([]*domain.DecisionSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionSnapshot
	for _, snap := range s.data {
		if snap.UserID == userID {
			snapCopy := *snap
			result = append(result, &snapCopy)
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

// All returns every archived row, in insertion order. Used by tests.
func (s *DecisionArchive) All() []*domain.DecisionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DecisionSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}
	return result
}

// Verify interface compliance at compile time.
var _ storage.DecisionArchive = (*DecisionArchive)(nil)
