package retry

import (
	"context"
	"fmt"
	"sync"

	"chaveiro/internal/keys/models"
)

// MemoryRouter implements ports.RetryRouter in memory for unit tests. It
// applies the same attempt-budget rule as the Kafka router and records both
// channels for assertions.
type MemoryRouter struct {
	mu          sync.Mutex
	maxAttempts int
	marker      ErrorMarker
	Retried     []models.RetryTrigger
	Dead        []models.RetryTrigger
}

func NewMemoryRouter(maxAttempts int, marker ErrorMarker) *MemoryRouter {
	return &MemoryRouter{maxAttempts: maxAttempts, marker: marker}
}

func (r *MemoryRouter) Route(ctx context.Context, trigger models.RetryTrigger) error {
	r.mu.Lock()
	exhausted := trigger.Attempt > r.maxAttempts
	if exhausted {
		r.Dead = append(r.Dead, trigger)
	} else {
		r.Retried = append(r.Retried, trigger)
	}
	r.mu.Unlock()

	if exhausted && r.marker != nil {
		reason := fmt.Sprintf("retries exhausted for %s: %s", trigger.Operation, trigger.LastError)
		if trigger.Reason != "" {
			reason = fmt.Sprintf("%s (reason %s)", reason, trigger.Reason)
		}
		if _, err := r.marker.MarkError(ctx, trigger.KeyID, reason); err != nil {
			return err
		}
	}
	return nil
}

// RetriedCount returns how many triggers were re-queued.
func (r *MemoryRouter) RetriedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Retried)
}

// DeadCount returns how many triggers were dead-lettered.
func (r *MemoryRouter) DeadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Dead)
}
