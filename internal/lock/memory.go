package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryManager is an in-process LockManager for unit tests and single
// instance runs. Leases do not expire; exclusion is plain mutual exclusion
// per name.
type MemoryManager struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemory() *MemoryManager {
	return &MemoryManager{held: make(map[string]bool)}
}

func (m *MemoryManager) RunExclusive(ctx context.Context, name string, _, _ time.Duration, fn func(ctx context.Context) error) (bool, error) {
	m.mu.Lock()
	if m.held[name] {
		m.mu.Unlock()
		return false, nil
	}
	m.held[name] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.held, name)
		m.mu.Unlock()
	}()
	return true, fn(ctx)
}
