package models

import "time"

// Operation names a state-machine transition. The retry router scopes its
// channels by operation, so these double as channel suffixes.
type Operation string

const (
	OpRegisterKey     Operation = "register-key"
	OpConfirmKey      Operation = "confirm-key"
	OpActivateKey     Operation = "activate-key"
	OpDeleteKey       Operation = "delete-key"
	OpConfirmDeletion Operation = "confirm-deletion"
	OpCancelKey       Operation = "cancel-key"

	OpStartOwnership          Operation = "ownership-start"
	OpWaitOwnership           Operation = "ownership-wait"
	OpConfirmOwnership        Operation = "ownership-confirm"
	OpCancelOwnership         Operation = "ownership-cancel"
	OpCompleteOwnershipCancel Operation = "ownership-cancel-complete"

	OpStartPortability          Operation = "portability-start"
	OpConfirmPortabilityStart   Operation = "portability-started"
	OpConfirmPortability        Operation = "portability-confirm"
	OpCancelPortability         Operation = "portability-cancel"
	OpCompletePortabilityCancel Operation = "portability-cancel-complete"

	OpOpenIncomingClaim  Operation = "claim-open"
	OpCloseClaim         Operation = "claim-close"
	OpCompleteClaimClose Operation = "claim-close-complete"
	OpClaimNotConfirmed  Operation = "claim-not-confirmed"
)

// RetryTrigger is the payload carried through the retry and dead-letter
// channels. It preserves the original trigger so an exhausted message can be
// resumed manually from the dead-letter topic.
type RetryTrigger struct {
	Operation Operation   `json:"operation"`
	KeyID     string      `json:"key_id"`
	ClaimID   string      `json:"claim_id,omitempty"`
	Reason    ClaimReason `json:"reason,omitempty"`
	Attempt   int         `json:"attempt"`
	FailedAt  time.Time   `json:"failed_at"`
	LastError string      `json:"last_error,omitempty"`
}
