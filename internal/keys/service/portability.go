package service

import (
	"context"
	"fmt"

	"chaveiro/internal/keys/models"
)

// StartPortability opens a portability claim on the directory to move the
// key value to this participant, and commits PORTABILITY_PENDING.
func (s *Service) StartPortability(ctx context.Context, keyID string) (*models.Key, error) {
	return s.startClaim(ctx, keyID, models.ClaimTypePortability, models.OpStartPortability, 0)
}

// ConfirmPortabilityStart marks the portability as started. Triggered by the
// poller when the directory reports WAITING_RESOLUTION.
func (s *Service) ConfirmPortabilityStart(ctx context.Context, keyID string) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpConfirmPortabilityStart, "", 0, nil)
}

// ConfirmPortability confirms the claim on the directory and commits
// PORTABILITY_CONFIRMED. Valid from PORTABILITY_STARTED only.
func (s *Service) ConfirmPortability(ctx context.Context, keyID string) (*models.Key, error) {
	return s.confirmPortability(ctx, keyID, 0)
}

func (s *Service) confirmPortability(ctx context.Context, keyID string, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpConfirmPortability, "", attempt, func(ctx context.Context, key *models.Key) error {
		if key.ClaimID == nil {
			return fmt.Errorf("key %s has no claim attached: %w", key.ID, ErrValidation)
		}
		_, _, err := s.gateway.ConfirmClaim(ctx, *key.ClaimID)
		return err
	})
}

// CancelPortability cancels the portability claim: commit
// PORTABILITY_CANCELING, cancel on the directory, commit
// PORTABILITY_CANCELED. Replays in either cancel state are no-ops.
func (s *Service) CancelPortability(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	switch key.State {
	case models.KeyStatePortabilityCanceling, models.KeyStatePortabilityCanceled:
		return key, nil
	}
	if _, err := s.apply(ctx, key, models.OpCancelPortability, reason, 0, nil); err != nil {
		return nil, err
	}
	return s.completePortabilityCancel(ctx, keyID, reason, 0)
}

// CompletePortabilityCancel finishes a cancellation whose directory call is
// still owed, commonly re-triggered off the retry channel.
func (s *Service) CompletePortabilityCancel(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	return s.completePortabilityCancel(ctx, keyID, reason, 0)
}

func (s *Service) completePortabilityCancel(ctx context.Context, keyID string, reason models.ClaimReason, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpCompletePortabilityCancel, reason, attempt, s.cancelClaimCall(reason))
}
