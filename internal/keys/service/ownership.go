package service

import (
	"context"
	"fmt"

	"chaveiro/internal/keys/models"
)

// StartOwnershipClaim opens an ownership claim on the directory for a key
// value this participant wants to take over, and commits OWNERSHIP_OPENED.
func (s *Service) StartOwnershipClaim(ctx context.Context, keyID string) (*models.Key, error) {
	return s.startClaim(ctx, keyID, models.ClaimTypeOwnership, models.OpStartOwnership, 0)
}

// startClaim is shared by ownership and portability openings: it asks the
// directory for a claim, mirrors it locally, and attaches the claim id to
// the key before the commit.
func (s *Service) startClaim(ctx context.Context, keyID string, claimType models.ClaimType, op models.Operation, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, op, "", attempt, func(ctx context.Context, key *models.Key) error {
		claim, err := s.gateway.CreateClaim(ctx, claimType, key.KeyValue, s.ispb)
		if err != nil {
			return err
		}
		if err := s.claims.Upsert(ctx, claim); err != nil {
			return fmt.Errorf("mirror claim %s: %w", claim.ID, err)
		}
		key.ClaimID = &claim.ID
		return nil
	})
}

// WaitOwnership marks the claim as waiting resolution. Triggered by the
// poller when the directory reports WAITING_RESOLUTION.
func (s *Service) WaitOwnership(ctx context.Context, keyID string) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpWaitOwnership, "", 0, nil)
}

// ConfirmOwnership confirms the claim on the directory and commits
// OWNERSHIP_CONFIRMED. Valid from OWNERSHIP_WAITING only.
func (s *Service) ConfirmOwnership(ctx context.Context, keyID string) (*models.Key, error) {
	return s.confirmOwnership(ctx, keyID, 0)
}

func (s *Service) confirmOwnership(ctx context.Context, keyID string, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpConfirmOwnership, "", attempt, func(ctx context.Context, key *models.Key) error {
		if key.ClaimID == nil {
			return fmt.Errorf("key %s has no claim attached: %w", key.ID, ErrValidation)
		}
		_, _, err := s.gateway.ConfirmClaim(ctx, *key.ClaimID)
		return err
	})
}

// CancelOwnership cancels the ownership claim: commit OWNERSHIP_CANCELING,
// cancel on the directory, commit OWNERSHIP_CANCELED. Replaying the trigger
// while the key already sits in OWNERSHIP_CANCELING (a retry is in flight)
// or OWNERSHIP_CANCELED is a pure no-op: zero gateway calls, zero events.
func (s *Service) CancelOwnership(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	switch key.State {
	case models.KeyStateOwnershipCanceling, models.KeyStateOwnershipCanceled:
		return key, nil
	}
	if _, err := s.apply(ctx, key, models.OpCancelOwnership, reason, 0, nil); err != nil {
		return nil, err
	}
	return s.completeOwnershipCancel(ctx, keyID, reason, 0)
}

// CompleteOwnershipCancel cancels the claim on the directory and commits
// OWNERSHIP_CANCELED.
func (s *Service) CompleteOwnershipCancel(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	return s.completeOwnershipCancel(ctx, keyID, reason, 0)
}

func (s *Service) completeOwnershipCancel(ctx context.Context, keyID string, reason models.ClaimReason, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpCompleteOwnershipCancel, reason, attempt, s.cancelClaimCall(reason))
}

// cancelClaimCall cancels the attached claim on the directory with the code
// for the given reason.
func (s *Service) cancelClaimCall(reason models.ClaimReason) gatewayCall {
	return func(ctx context.Context, key *models.Key) error {
		if key.ClaimID == nil {
			return fmt.Errorf("key %s has no claim attached: %w", key.ID, ErrValidation)
		}
		_, err := s.gateway.CancelClaim(ctx, *key.ClaimID, reason)
		return err
	}
}
