package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"chaveiro/internal/directory"
	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

func (s *MachineSuite) directoryClaim(claimType models.ClaimType, keyValue string) *models.Claim {
	return &models.Claim{
		ID:                  uuid.NewString(),
		KeyValue:            keyValue,
		Type:                claimType,
		Status:              models.ClaimStatusOpen,
		DonorISPB:           otherISPB,
		ClaimerISPB:         testISPB,
		ResolutionDeadline:  time.Now().Add(7 * 24 * time.Hour),
		DirectoryModifiedAt: time.Now(),
	}
}

func (s *MachineSuite) TestOwnershipClaimLifecycle() {
	key := s.seedKey(models.KeyStateReady)
	claim := s.directoryClaim(models.ClaimTypeOwnership, key.KeyValue)

	s.gateway.EXPECT().
		CreateClaim(gomock.Any(), models.ClaimTypeOwnership, key.KeyValue, testISPB).
		Return(claim, nil)

	opened, err := s.machine.StartOwnershipClaim(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipOpened, opened.State)
	s.Require().NotNil(opened.ClaimID)
	s.Equal(claim.ID, *opened.ClaimID)

	mirrored, err := s.claims.Get(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.ClaimStatusOpen, mirrored.Status)

	waiting, err := s.machine.WaitOwnership(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipWaiting, waiting.State)

	s.gateway.EXPECT().
		ConfirmClaim(gomock.Any(), claim.ID).
		Return(models.ClaimStatusConfirmed, time.Now(), nil)
	confirmed, err := s.machine.ConfirmOwnership(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipConfirmed, confirmed.State)

	s.Equal([]string{"ownership-opened", "ownership-waiting", "ownership-confirmed"}, s.eventNames())
}

func (s *MachineSuite) TestCancelOwnershipChainsBothCommits() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipWaiting)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonUserRequested).
		Return(models.ClaimStatusCancelled, nil)

	canceled, err := s.machine.CancelOwnership(s.ctx, key.ID, models.ReasonUserRequested)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipCanceled, canceled.State)
	s.Equal([]string{"ownership-canceling", "ownership-canceled"}, s.eventNames())

	// Replay after completion: zero gateway calls, zero events.
	s.publisher.Reset()
	replayed, err := s.machine.CancelOwnership(s.ctx, key.ID, models.ReasonUserRequested)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipCanceled, replayed.State)
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestCancelOwnershipResumesFromCancelingState() {
	// A crash between the two commits leaves the key in OWNERSHIP_CANCELING;
	// the retry trigger finishes the directory call.
	key := s.seedKeyWithClaim(models.KeyStateOwnershipCanceling)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	done, err := s.machine.CompleteOwnershipCancel(s.ctx, key.ID, models.ReasonDefaultOperation)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipCanceled, done.State)
}

func (s *MachineSuite) TestCancelOwnershipRequiresWaitingState() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipOpened)
	_, err := s.machine.CancelOwnership(s.ctx, key.ID, models.ReasonUserRequested)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal(models.KeyStateOwnershipOpened, s.storedState(key.ID))
}

func (s *MachineSuite) TestPortabilityLifecycle() {
	key := s.seedKey(models.KeyStateReady)
	claim := s.directoryClaim(models.ClaimTypePortability, key.KeyValue)

	s.gateway.EXPECT().
		CreateClaim(gomock.Any(), models.ClaimTypePortability, key.KeyValue, testISPB).
		Return(claim, nil)

	pending, err := s.machine.StartPortability(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStatePortabilityPending, pending.State)

	started, err := s.machine.ConfirmPortabilityStart(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStatePortabilityStarted, started.State)

	s.gateway.EXPECT().
		ConfirmClaim(gomock.Any(), claim.ID).
		Return(models.ClaimStatusConfirmed, time.Now(), nil)
	confirmed, err := s.machine.ConfirmPortability(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStatePortabilityConfirmed, confirmed.State)
}

func (s *MachineSuite) TestPortabilityCancelRetriesThroughTheRouter() {
	key := s.seedKeyWithClaim(models.KeyStatePortabilityStarted)

	// First commit lands, directory cancel times out.
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatus(""), &directory.TransientError{Op: "cancelClaim", StatusCode: 504})

	_, err := s.machine.CancelPortability(s.ctx, key.ID, models.ReasonDefaultOperation)
	s.Require().ErrorIs(err, ErrRetryScheduled)
	s.Equal(models.KeyStatePortabilityCanceling, s.storedState(key.ID))
	s.Require().Equal(1, s.router.RetriedCount())
	trigger := s.router.Retried[0]
	s.Equal(models.OpCompletePortabilityCancel, trigger.Operation)

	// Redelivery succeeds.
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)
	s.Require().NoError(s.machine.ApplyTrigger(s.ctx, trigger))
	s.Equal(models.KeyStatePortabilityCanceled, s.storedState(key.ID))
}

func (s *MachineSuite) TestPortabilityCancelFromPendingState() {
	key := s.seedKeyWithClaim(models.KeyStatePortabilityPending)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	canceled, err := s.machine.CancelPortability(s.ctx, key.ID, models.ReasonDefaultOperation)
	s.Require().NoError(err)
	s.Equal(models.KeyStatePortabilityCanceled, canceled.State)
}

func (s *MachineSuite) TestCloseClaimChainsBothCommits() {
	key := s.seedKeyWithClaim(models.KeyStateClaimPending)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonUserRequested).
		Return(models.ClaimStatusCancelled, nil)

	closed, err := s.machine.CloseClaim(s.ctx, key.ID, models.ReasonUserRequested)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimClosed, closed.State)
	s.Equal([]string{"claim-closing", "claim-closed"}, s.eventNames())

	s.publisher.Reset()
	replayed, err := s.machine.CloseClaim(s.ctx, key.ID, models.ReasonUserRequested)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimClosed, replayed.State)
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestExpiryTasksCoverEachPendingFamily() {
	tasks := ExpiryTasks()
	s.Len(tasks, 3)
	byName := make(map[string]ExpiryTask, len(tasks))
	for _, task := range tasks {
		byName[task.Name] = task
	}
	s.Equal(models.OpCloseClaim, byName["claim-pending-expiry"].Op)
	s.Equal(models.OpCancelPortability, byName["portability-pending-expiry"].Op)
	s.Equal(models.OpCancelOwnership, byName["ownership-expiry"].Op)
}

func (s *MachineSuite) TestTriggerCancellationSwallowsRetryScheduling() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipWaiting)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *key.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatus(""), &directory.TransientError{Op: "cancelClaim", StatusCode: 503})

	err := s.machine.TriggerCancellation(s.ctx, key.ID, models.OpCancelOwnership, models.ReasonDefaultOperation)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipCanceling, s.storedState(key.ID))
	s.Equal(1, s.router.RetriedCount())
}
