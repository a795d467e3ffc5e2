// Package models holds the data-transfer structs for Pix keys and DICT
// claims. Keep them plain: persistence and directory wire concerns live in
// the stores and the gateway, not here.
package models

import "time"

// KeyType enumerates the addressing key kinds accepted by the directory.
type KeyType string

const (
	KeyTypeDocument KeyType = "DOCUMENT"
	KeyTypePhone    KeyType = "PHONE"
	KeyTypeEmail    KeyType = "EMAIL"
	KeyTypeRandom   KeyType = "RANDOM"
)

// KeyState is the local lifecycle state of a key. The state machine in
// internal/keys/service owns every transition between these values.
type KeyState string

const (
	KeyStatePending KeyState = "PENDING"

	KeyStateConfirmed KeyState = "CONFIRMED"
	KeyStateReady     KeyState = "READY"

	KeyStateOwnershipOpened    KeyState = "OWNERSHIP_OPENED"
	KeyStateOwnershipWaiting   KeyState = "OWNERSHIP_WAITING"
	KeyStateOwnershipConfirmed KeyState = "OWNERSHIP_CONFIRMED"
	KeyStateOwnershipCanceling KeyState = "OWNERSHIP_CANCELING"
	KeyStateOwnershipCanceled  KeyState = "OWNERSHIP_CANCELED"

	KeyStatePortabilityPending   KeyState = "PORTABILITY_PENDING"
	KeyStatePortabilityStarted   KeyState = "PORTABILITY_STARTED"
	KeyStatePortabilityConfirmed KeyState = "PORTABILITY_CONFIRMED"
	KeyStatePortabilityCanceling KeyState = "PORTABILITY_CANCELING"
	KeyStatePortabilityCanceled  KeyState = "PORTABILITY_CANCELED"

	KeyStateClaimPending      KeyState = "CLAIM_PENDING"
	KeyStateClaimClosing      KeyState = "CLAIM_CLOSING"
	KeyStateClaimClosed       KeyState = "CLAIM_CLOSED"
	KeyStateClaimNotConfirmed KeyState = "CLAIM_NOT_CONFIRMED"

	KeyStateDeleting KeyState = "DELETING"
	KeyStateDeleted  KeyState = "DELETED"
	KeyStateCanceled KeyState = "CANCELED"
	KeyStateError    KeyState = "ERROR"
)

// TerminalKeyStates are states that release the key value for re-registration.
// The unique constraint on key_value excludes rows in these states.
var TerminalKeyStates = []KeyState{
	KeyStateDeleted,
	KeyStateCanceled,
	KeyStateOwnershipCanceled,
	KeyStatePortabilityCanceled,
	KeyStateClaimClosed,
}

// IsTerminal reports whether the state releases the key value.
func (s KeyState) IsTerminal() bool {
	for _, t := range TerminalKeyStates {
		if s == t {
			return true
		}
	}
	return false
}

// Key is the local record for a payment-addressing key. ClaimID is set while
// a directory claim is in flight and LastError only while State is ERROR.
type Key struct {
	ID        string
	KeyValue  string
	KeyType   KeyType
	AccountID string
	State     KeyState
	ClaimID   *string
	LastError *string

	// StateChangedAt is when State last changed; the expiry scanner keys
	// its threshold queries off this, not UpdatedAt.
	StateChangedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy safe to mutate without aliasing store-held pointers.
func (k *Key) Clone() *Key {
	if k == nil {
		return nil
	}
	out := *k
	if k.ClaimID != nil {
		v := *k.ClaimID
		out.ClaimID = &v
	}
	if k.LastError != nil {
		v := *k.LastError
		out.LastError = &v
	}
	return &out
}
