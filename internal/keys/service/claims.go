package service

import (
	"context"
	"errors"
	"fmt"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

// OpenIncomingClaim reacts to a claim another participant opened against a
// key this instance owns: the key leaves READY for CLAIM_PENDING and the
// claim id is attached. Triggered by the reconciliation poller, never by a
// local user.
func (s *Service) OpenIncomingClaim(ctx context.Context, keyID string, claimID string) (*models.Key, error) {
	if claimID == "" {
		return nil, fmt.Errorf("claim id is required: %w", ErrValidation)
	}
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpOpenIncomingClaim, "", 0, func(_ context.Context, key *models.Key) error {
		key.ClaimID = &claimID
		return nil
	})
}

// CloseClaim resolves an incoming claim held against this participant:
// commit CLAIM_CLOSING, cancel the claim on the directory, commit
// CLAIM_CLOSED. Replays in either closing state are no-ops.
func (s *Service) CloseClaim(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	switch key.State {
	case models.KeyStateClaimClosing, models.KeyStateClaimClosed:
		return key, nil
	}
	if _, err := s.apply(ctx, key, models.OpCloseClaim, reason, 0, nil); err != nil {
		return nil, err
	}
	return s.completeClaimClose(ctx, keyID, reason, 0)
}

// CompleteClaimClose finishes the directory-side cancellation of an
// incoming claim.
func (s *Service) CompleteClaimClose(ctx context.Context, keyID string, reason models.ClaimReason) (*models.Key, error) {
	return s.completeClaimClose(ctx, keyID, reason, 0)
}

func (s *Service) completeClaimClose(ctx context.Context, keyID string, reason models.ClaimReason, attempt int) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpCompleteClaimClose, reason, attempt, s.cancelClaimCall(reason))
}

// ClaimNotConfirmed marks an incoming claim the counterpart abandoned.
func (s *Service) ClaimNotConfirmed(ctx context.Context, keyID string) (*models.Key, error) {
	key, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, key, models.OpClaimNotConfirmed, "", 0, nil)
}

// HandleDirectoryClaim applies a directory-observed claim snapshot to the
// affected key. The poller has already advanced the local mirror; this maps
// the reported status onto state-machine triggers. Directory-originated
// status changes never call the gateway back; the directory already holds
// the truth being applied.
func (s *Service) HandleDirectoryClaim(ctx context.Context, claim *models.Claim) error {
	if claim == nil || claim.ID == "" {
		return fmt.Errorf("claim snapshot is required: %w", ErrValidation)
	}
	key, err := s.keys.GetByValue(ctx, claim.KeyValue)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Claim over a key value this participant no longer holds.
			if s.logger != nil {
				s.logger.InfoContext(ctx, "directory claim for unknown key value",
					"claim_id", claim.ID, "status", claim.Status)
			}
			return nil
		}
		return err
	}

	claimer := claim.ClaimerISPB == s.ispb
	var applyErr error
	switch claim.Status {
	case models.ClaimStatusOpen:
		if claimer {
			// Locally opened claim echoed back by the poll; nothing to advance.
			return nil
		}
		_, applyErr = s.OpenIncomingClaim(ctx, key.ID, claim.ID)

	case models.ClaimStatusWaitingResolution:
		if !claimer {
			return nil
		}
		switch claim.Type {
		case models.ClaimTypeOwnership:
			_, applyErr = s.WaitOwnership(ctx, key.ID)
		case models.ClaimTypePortability:
			_, applyErr = s.ConfirmPortabilityStart(ctx, key.ID)
		}

	case models.ClaimStatusConfirmed, models.ClaimStatusCompleted:
		if claimer {
			// The donor confirmed; commit the confirmed state without
			// calling the directory back.
			applyErr = s.applyForType(ctx, key, claim.Type,
				models.OpConfirmOwnership, models.OpConfirmPortability)
		} else {
			// Our release went through on the directory side.
			applyErr = s.driveDonorClosed(ctx, key)
		}

	case models.ClaimStatusCancelled:
		applyErr = s.handleDirectoryCancel(ctx, key, claim, claimer)

	default:
		return fmt.Errorf("unknown directory claim status %q", claim.Status)
	}

	if applyErr != nil && errors.Is(applyErr, sentinel.ErrInvalidState) {
		// The local record already moved past this snapshot; the watermark
		// keeps the mirror consistent, so a stale trigger is dropped.
		if s.logger != nil {
			s.logger.DebugContext(ctx, "dropping stale directory trigger",
				"claim_id", claim.ID, "status", claim.Status, "key_state", key.State)
		}
		return nil
	}
	return applyErr
}

// applyForType runs the ownership or portability variant of an operation
// without a gateway call.
func (s *Service) applyForType(ctx context.Context, key *models.Key, claimType models.ClaimType, ownershipOp, portabilityOp models.Operation) error {
	op := ownershipOp
	if claimType == models.ClaimTypePortability {
		op = portabilityOp
	}
	_, err := s.apply(ctx, key, op, "", 0, nil)
	return err
}

// driveDonorClosed walks a donor-side key to CLAIM_CLOSED when the
// directory reports the claim resolved against us.
func (s *Service) driveDonorClosed(ctx context.Context, key *models.Key) error {
	if key.State == models.KeyStateClaimPending {
		var err error
		if key, err = s.apply(ctx, key, models.OpCloseClaim, models.ReasonDefaultOperation, 0, nil); err != nil {
			return err
		}
	}
	_, err := s.apply(ctx, key, models.OpCompleteClaimClose, models.ReasonDefaultOperation, 0, nil)
	return err
}

// handleDirectoryCancel applies a directory-side CANCELLED status. The
// claim is already cancelled remotely, so the local record is walked to its
// canceled state without calling the directory back.
func (s *Service) handleDirectoryCancel(ctx context.Context, key *models.Key, claim *models.Claim, claimer bool) error {
	if !claimer {
		// Counterpart dropped the claim against us.
		_, err := s.apply(ctx, key, models.OpClaimNotConfirmed, "", 0, nil)
		return err
	}
	switch claim.Type {
	case models.ClaimTypeOwnership:
		if key.State == models.KeyStateOwnershipWaiting || key.State == models.KeyStateOwnershipOpened {
			var err error
			if key, err = s.forceState(ctx, key, models.KeyStateOwnershipCanceling, "ownership-canceling"); err != nil {
				return err
			}
		}
		_, err := s.apply(ctx, key, models.OpCompleteOwnershipCancel, models.ReasonDefaultOperation, 0, nil)
		return err
	case models.ClaimTypePortability:
		if key.State == models.KeyStatePortabilityPending || key.State == models.KeyStatePortabilityStarted {
			var err error
			if key, err = s.forceState(ctx, key, models.KeyStatePortabilityCanceling, "portability-canceling"); err != nil {
				return err
			}
		}
		_, err := s.apply(ctx, key, models.OpCompletePortabilityCancel, models.ReasonDefaultOperation, 0, nil)
		return err
	}
	return nil
}

// forceState commits an intermediate state outside the public operations,
// used only while replaying directory-side outcomes. The conditional write
// still guards against concurrent writers.
func (s *Service) forceState(ctx context.Context, key *models.Key, target models.KeyState, event string) (*models.Key, error) {
	entryState := key.State
	key.State = target
	if err := s.keys.UpdateConditional(ctx, key, entryState); err != nil {
		return nil, fmt.Errorf("commit %s: %w", target, err)
	}
	s.publishTransition(ctx, key, event, entryState, "")
	return key, nil
}
