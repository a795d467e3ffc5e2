package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chaveiro/internal/events"
	"chaveiro/internal/keys/models"
)

// RegisterKey creates a local PENDING record for the key value. The
// directory entry is created by the follow-up ConfirmKey transition, so a
// directory outage never blocks accepting the request.
func (s *Service) RegisterKey(ctx context.Context, keyValue string, keyType models.KeyType, accountID string) (*models.Key, error) {
	if keyValue == "" && keyType != models.KeyTypeRandom {
		return nil, fmt.Errorf("key value is required: %w", ErrValidation)
	}
	if accountID == "" {
		return nil, fmt.Errorf("account id is required: %w", ErrValidation)
	}
	switch keyType {
	case models.KeyTypeDocument, models.KeyTypePhone, models.KeyTypeEmail, models.KeyTypeRandom:
	default:
		return nil, fmt.Errorf("unknown key type %q: %w", keyType, ErrValidation)
	}
	if keyType == models.KeyTypeRandom {
		keyValue = uuid.NewString()
	}

	now := s.now()
	key := &models.Key{
		ID:             uuid.NewString(),
		KeyValue:       keyValue,
		KeyType:        keyType,
		AccountID:      accountID,
		State:          models.KeyStatePending,
		StateChangedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("register key: %w", err)
	}

	s.publish(ctx, events.Event{
		Name:      transitions[models.OpRegisterKey].event,
		KeyID:     key.ID,
		KeyValue:  key.KeyValue,
		NewState:  string(models.KeyStatePending),
		Timestamp: now,
	})
	s.count(models.OpRegisterKey, "committed")
	return key, nil
}

// ConfirmKey registers the key value with the directory and commits
// CONFIRMED.
func (s *Service) ConfirmKey(ctx context.Context, keyID string) (*models.Key, error) {
	return s.confirmKey(ctx, keyID, 0)
}

func (s *Service) confirmKey(ctx context.Context, keyID string, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpConfirmKey, "", attempt, func(ctx context.Context, key *models.Key) error {
		return s.gateway.CreateEntry(ctx, key, s.ispb)
	})
}

// ActivateKey moves a directory-confirmed key to READY.
func (s *Service) ActivateKey(ctx context.Context, keyID string) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpActivateKey, "", 0, nil)
}

// CancelKey abandons a PENDING registration before the directory ever saw
// it.
func (s *Service) CancelKey(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpCancelKey, reason, 0, nil)
}

// DeleteKey starts the removal of a READY key (or an ERROR key, giving
// operators an exit path for stuck records).
func (s *Service) DeleteKey(ctx context.Context, keyID string) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpDeleteKey, "", 0, nil)
}

// ConfirmDeletion removes the entry from the directory and commits DELETED.
func (s *Service) ConfirmDeletion(ctx context.Context, keyID string) (*models.Key, error) {
	return s.confirmDeletion(ctx, keyID, 0)
}

func (s *Service) confirmDeletion(ctx context.Context, keyID string, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpConfirmDeletion, "", attempt, func(ctx context.Context, key *models.Key) error {
		return s.gateway.DeleteEntry(ctx, key.KeyValue, s.ispb)
	})
}

// expirySets groups the pending states each expiry scanner sweeps with the
// cancellation operation it triggers.
var expirySets = map[string]struct {
	States []models.KeyState
	Op     models.Operation
}{
	"claim-pending-expiry": {
		States: []models.KeyState{models.KeyStateClaimPending},
		Op:     models.OpCloseClaim,
	},
	"portability-pending-expiry": {
		States: []models.KeyState{models.KeyStatePortabilityPending, models.KeyStatePortabilityStarted},
		Op:     models.OpCancelPortability,
	},
	"ownership-expiry": {
		States: []models.KeyState{models.KeyStateOwnershipWaiting},
		Op:     models.OpCancelOwnership,
	},
}

// ExpiryTask describes one scanner sweep: which states to select, how stale
// they must be, and which cancellation the scanner triggers.
type ExpiryTask struct {
	Name   string
	States []models.KeyState
	Op     models.Operation
}

// ExpiryTasks returns the scanner task definitions keyed by lock name.
func ExpiryTasks() []ExpiryTask {
	out := make([]ExpiryTask, 0, len(expirySets))
	for name, set := range expirySets {
		out = append(out, ExpiryTask{Name: name, States: set.States, Op: set.Op})
	}
	return out
}

// ExpiredKeys lists keys sitting in the given states since before the
// cutoff.
func (s *Service) ExpiredKeys(ctx context.Context, states []models.KeyState, olderThan time.Duration, limit int) ([]*models.Key, error) {
	return s.keys.ListByStateOlderThan(ctx, states, s.now().Add(-olderThan), limit)
}
