package service

import (
	"context"
	"errors"
	"fmt"

	"chaveiro/internal/keys/models"
)

// ApplyTrigger replays a trigger delivered off a retry channel. The attempt
// count rides along so another transient failure re-queues with the budget
// decremented. ErrRetryScheduled is swallowed here; the re-queue already
// happened, the delivery itself succeeded.
func (s *Service) ApplyTrigger(ctx context.Context, trigger models.RetryTrigger) error {
	var err error
	switch trigger.Operation {
	case models.OpConfirmKey:
		_, err = s.confirmKey(ctx, trigger.KeyID, trigger.Attempt)
	case models.OpConfirmDeletion:
		_, err = s.confirmDeletion(ctx, trigger.KeyID, trigger.Attempt)
	case models.OpStartOwnership:
		_, err = s.startClaim(ctx, trigger.KeyID, models.ClaimTypeOwnership, models.OpStartOwnership, trigger.Attempt)
	case models.OpStartPortability:
		_, err = s.startClaim(ctx, trigger.KeyID, models.ClaimTypePortability, models.OpStartPortability, trigger.Attempt)
	case models.OpConfirmOwnership:
		_, err = s.confirmOwnership(ctx, trigger.KeyID, trigger.Attempt)
	case models.OpConfirmPortability:
		_, err = s.confirmPortability(ctx, trigger.KeyID, trigger.Attempt)
	case models.OpCompleteOwnershipCancel:
		_, err = s.completeOwnershipCancel(ctx, trigger.KeyID, trigger.Reason, trigger.Attempt)
	case models.OpCompletePortabilityCancel:
		_, err = s.completePortabilityCancel(ctx, trigger.KeyID, trigger.Reason, trigger.Attempt)
	case models.OpCompleteClaimClose:
		_, err = s.completeClaimClose(ctx, trigger.KeyID, trigger.Reason, trigger.Attempt)
	default:
		return fmt.Errorf("operation %s is not retryable", trigger.Operation)
	}
	if errors.Is(err, ErrRetryScheduled) {
		return nil
	}
	return err
}

// TriggerCancellation is the expiry scanner's entry point: it maps the
// scanned sub-state's cancellation operation onto the public operations so
// every guard and idempotency rule still applies.
func (s *Service) TriggerCancellation(ctx context.Context, keyID string, op models.Operation, reason models.ClaimReason) error {
	var err error
	switch op {
	case models.OpCancelOwnership:
		_, err = s.CancelOwnership(ctx, keyID, reason)
	case models.OpCancelPortability:
		_, err = s.CancelPortability(ctx, keyID, reason)
	case models.OpCloseClaim:
		_, err = s.CloseClaim(ctx, keyID, reason)
	default:
		return fmt.Errorf("operation %s is not a cancellation", op)
	}
	if errors.Is(err, ErrRetryScheduled) {
		return nil
	}
	return err
}
