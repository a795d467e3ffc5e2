package claim

import (
	"context"
	"sync"
	"time"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ClaimStore with the same watermark and
// terminal-status semantics as the Postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	claims map[string]*models.Claim
}

func NewMemory() *MemoryStore {
	return &MemoryStore{claims: make(map[string]*models.Claim)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return claim.Clone(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	existing, ok := s.claims[claim.ID]
	if !ok {
		stored := claim.Clone()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.claims[claim.ID] = stored
		return nil
	}
	if !claim.Supersedes(existing) {
		return sentinel.ErrStale
	}
	stored := claim.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now
	s.claims[claim.ID] = stored
	return nil
}
