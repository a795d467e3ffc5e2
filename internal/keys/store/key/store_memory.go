package key

import (
	"context"
	"sync"
	"time"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

// MemoryStore is an in-memory KeyStore for unit tests and local runs. It
// honors the same conditional-update and uniqueness semantics as the
// Postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*models.Key
}

func NewMemory() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*models.Key)}
}

func (s *MemoryStore) Create(_ context.Context, key *models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys {
		if existing.KeyValue == key.KeyValue && !existing.State.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.keys[key.ID] = key.Clone()
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return key.Clone(), nil
}

func (s *MemoryStore) GetByValue(_ context.Context, keyValue string) (*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		if key.KeyValue == keyValue && !key.State.IsTerminal() {
			return key.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) UpdateConditional(_ context.Context, key *models.Key, expected models.KeyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.keys[key.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.State != expected {
		return sentinel.ErrConflict
	}
	stored := key.Clone()
	stored.UpdatedAt = time.Now()
	if stored.State != current.State {
		stored.StateChangedAt = stored.UpdatedAt
	}
	s.keys[key.ID] = stored
	*key = *stored.Clone()
	return nil
}

func (s *MemoryStore) ListByStateOlderThan(_ context.Context, states []models.KeyState, cutoff time.Time, limit int) ([]*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[models.KeyState]bool, len(states))
	for _, st := range states {
		wanted[st] = true
	}
	var out []*models.Key
	for _, key := range s.keys {
		if wanted[key.State] && key.StateChangedAt.Before(cutoff) {
			out = append(out, key.Clone())
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
