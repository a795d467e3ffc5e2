package service

import "chaveiro/internal/keys/models"

// transition is one row of the state machine table: the states an operation
// may start from, the single state it commits, and the event name published
// on commit. Guards are data, not prose: Apply never branches on anything
// outside this table.
type transition struct {
	sources []models.KeyState
	target  models.KeyState
	event   string
}

var transitions = map[models.Operation]transition{
	models.OpRegisterKey: {
		sources: nil, // creates the record
		target:  models.KeyStatePending,
		event:   "key-pending",
	},
	models.OpConfirmKey: {
		sources: []models.KeyState{models.KeyStatePending},
		target:  models.KeyStateConfirmed,
		event:   "key-confirmed",
	},
	models.OpActivateKey: {
		sources: []models.KeyState{models.KeyStateConfirmed},
		target:  models.KeyStateReady,
		event:   "key-ready",
	},
	models.OpCancelKey: {
		sources: []models.KeyState{models.KeyStatePending},
		target:  models.KeyStateCanceled,
		event:   "key-canceled",
	},
	models.OpDeleteKey: {
		sources: []models.KeyState{models.KeyStateReady, models.KeyStateError},
		target:  models.KeyStateDeleting,
		event:   "key-deleting",
	},
	models.OpConfirmDeletion: {
		sources: []models.KeyState{models.KeyStateDeleting},
		target:  models.KeyStateDeleted,
		event:   "key-deleted",
	},

	models.OpStartOwnership: {
		sources: []models.KeyState{models.KeyStateReady},
		target:  models.KeyStateOwnershipOpened,
		event:   "ownership-opened",
	},
	models.OpWaitOwnership: {
		sources: []models.KeyState{models.KeyStateOwnershipOpened},
		target:  models.KeyStateOwnershipWaiting,
		event:   "ownership-waiting",
	},
	models.OpConfirmOwnership: {
		sources: []models.KeyState{models.KeyStateOwnershipWaiting},
		target:  models.KeyStateOwnershipConfirmed,
		event:   "ownership-confirmed",
	},
	models.OpCancelOwnership: {
		sources: []models.KeyState{models.KeyStateOwnershipWaiting},
		target:  models.KeyStateOwnershipCanceling,
		event:   "ownership-canceling",
	},
	models.OpCompleteOwnershipCancel: {
		sources: []models.KeyState{models.KeyStateOwnershipCanceling},
		target:  models.KeyStateOwnershipCanceled,
		event:   "ownership-canceled",
	},

	models.OpStartPortability: {
		sources: []models.KeyState{models.KeyStateReady},
		target:  models.KeyStatePortabilityPending,
		event:   "portability-pending",
	},
	models.OpConfirmPortabilityStart: {
		sources: []models.KeyState{models.KeyStatePortabilityPending},
		target:  models.KeyStatePortabilityStarted,
		event:   "portability-started",
	},
	models.OpConfirmPortability: {
		sources: []models.KeyState{models.KeyStatePortabilityStarted},
		target:  models.KeyStatePortabilityConfirmed,
		event:   "portability-confirmed",
	},
	models.OpCancelPortability: {
		sources: []models.KeyState{models.KeyStatePortabilityPending, models.KeyStatePortabilityStarted},
		target:  models.KeyStatePortabilityCanceling,
		event:   "portability-canceling",
	},
	models.OpCompletePortabilityCancel: {
		sources: []models.KeyState{models.KeyStatePortabilityCanceling},
		target:  models.KeyStatePortabilityCanceled,
		event:   "portability-canceled",
	},

	models.OpOpenIncomingClaim: {
		sources: []models.KeyState{models.KeyStateReady},
		target:  models.KeyStateClaimPending,
		event:   "claim-pending",
	},
	models.OpCloseClaim: {
		sources: []models.KeyState{models.KeyStateClaimPending},
		target:  models.KeyStateClaimClosing,
		event:   "claim-closing",
	},
	models.OpCompleteClaimClose: {
		sources: []models.KeyState{models.KeyStateClaimClosing},
		target:  models.KeyStateClaimClosed,
		event:   "claim-closed",
	},
	models.OpClaimNotConfirmed: {
		sources: []models.KeyState{models.KeyStateClaimPending},
		target:  models.KeyStateClaimNotConfirmed,
		event:   "claim-not-confirmed",
	},
}

func (t transition) allowsSource(state models.KeyState) bool {
	for _, s := range t.sources {
		if s == state {
			return true
		}
	}
	return false
}
