package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/ports"
	"chaveiro/internal/keys/service"
)

// Scanner force-resolves claims sitting in a pending local state past the
// configured threshold. It is only a trigger source: every cancellation
// goes through the state machine's guards, so a key another writer already
// moved is simply skipped.
type Scanner struct {
	locks     ports.LockManager
	keys      ports.KeyStore
	machine   *service.Service
	task      service.ExpiryTask
	threshold time.Duration
	batch     int
	lease     time.Duration
	refresh   time.Duration
	logger    *slog.Logger
}

// NewScanner builds one scanner for one expiry task (lock name, state set
// and cancellation operation come from the task definition).
func NewScanner(
	locks ports.LockManager,
	keys ports.KeyStore,
	machine *service.Service,
	task service.ExpiryTask,
	threshold time.Duration,
	batch int,
	lease, refresh time.Duration,
	logger *slog.Logger,
) (*Scanner, error) {
	if locks == nil || keys == nil || machine == nil {
		return nil, fmt.Errorf("lock manager, key store and state machine are required")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive")
	}
	return &Scanner{
		locks:     locks,
		keys:      keys,
		machine:   machine,
		task:      task,
		threshold: threshold,
		batch:     batch,
		lease:     lease,
		refresh:   refresh,
		logger:    logger,
	}, nil
}

// Tick runs one sweep under the task's lock.
func (s *Scanner) Tick(ctx context.Context) error {
	_, err := s.locks.RunExclusive(ctx, s.task.Name, s.lease, s.refresh, s.sweep)
	return err
}

func (s *Scanner) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.threshold)
	expired, err := s.keys.ListByStateOlderThan(ctx, s.task.States, cutoff, s.batch)
	if err != nil {
		return fmt.Errorf("list expired keys for %s: %w", s.task.Name, err)
	}
	for _, key := range expired {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.machine.TriggerCancellation(ctx, key.ID, s.task.Op, models.ReasonDefaultOperation); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "expiry cancellation failed",
					"task", s.task.Name, "key_id", key.ID, "error", err)
			}
			continue
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "expired claim canceled",
				"task", s.task.Name, "key_id", key.ID, "was", key.State)
		}
	}
	return nil
}
