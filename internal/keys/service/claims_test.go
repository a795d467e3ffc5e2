package service

import (
	"time"

	"github.com/google/uuid"

	"chaveiro/internal/keys/models"
)

// snapshot builds a directory claim snapshot over the key's value. The
// claimer flag decides which side this participant is on.
func (s *MachineSuite) snapshot(key *models.Key, claimType models.ClaimType, status models.ClaimStatus, claimer bool) *models.Claim {
	claim := &models.Claim{
		ID:                  uuid.NewString(),
		KeyValue:            key.KeyValue,
		Type:                claimType,
		Status:              status,
		DonorISPB:           testISPB,
		ClaimerISPB:         otherISPB,
		ResolutionDeadline:  time.Now().Add(7 * 24 * time.Hour),
		DirectoryModifiedAt: time.Now(),
	}
	if claimer {
		claim.DonorISPB = otherISPB
		claim.ClaimerISPB = testISPB
	}
	if key.ClaimID != nil {
		claim.ID = *key.ClaimID
	}
	return claim
}

func (s *MachineSuite) TestDirectoryClaimOpensIncomingClaim() {
	key := s.seedKey(models.KeyStateReady)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusOpen, false)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))

	stored, err := s.keys.GetByID(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimPending, stored.State)
	s.Require().NotNil(stored.ClaimID)
	s.Equal(claim.ID, *stored.ClaimID)
	s.Equal([]string{"claim-pending"}, s.eventNames())
}

func (s *MachineSuite) TestDirectoryClaimEchoOfOwnOpenIsIgnored() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipOpened)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusOpen, true)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateOwnershipOpened, s.storedState(key.ID))
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestDirectoryClaimAdvancesClaimerToWaiting() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipOpened)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusWaitingResolution, true)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateOwnershipWaiting, s.storedState(key.ID))
}

func (s *MachineSuite) TestDirectoryClaimConfirmationOmitsGatewayCall() {
	// The directory already reports CONFIRMED; calling ConfirmClaim back
	// would be redundant, so no gateway expectation is registered.
	key := s.seedKeyWithClaim(models.KeyStateOwnershipWaiting)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusConfirmed, true)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateOwnershipConfirmed, s.storedState(key.ID))
}

func (s *MachineSuite) TestDirectoryClaimCompletionWalksDonorToClosed() {
	key := s.seedKeyWithClaim(models.KeyStateClaimPending)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusCompleted, false)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateClaimClosed, s.storedState(key.ID))
	s.Equal([]string{"claim-closing", "claim-closed"}, s.eventNames())
}

func (s *MachineSuite) TestDirectoryClaimCancellationOnDonorSide() {
	key := s.seedKeyWithClaim(models.KeyStateClaimPending)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusCancelled, false)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateClaimNotConfirmed, s.storedState(key.ID))
}

func (s *MachineSuite) TestDirectoryClaimCancellationOnClaimerSide() {
	key := s.seedKeyWithClaim(models.KeyStateOwnershipWaiting)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusCancelled, true)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateOwnershipCanceled, s.storedState(key.ID))
	s.Equal([]string{"ownership-canceling", "ownership-canceled"}, s.eventNames())
}

func (s *MachineSuite) TestDirectoryClaimPortabilityCancellation() {
	key := s.seedKeyWithClaim(models.KeyStatePortabilityStarted)
	claim := s.snapshot(key, models.ClaimTypePortability, models.ClaimStatusCancelled, true)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStatePortabilityCanceled, s.storedState(key.ID))
}

func (s *MachineSuite) TestDirectoryClaimForUnknownValueIsIgnored() {
	claim := &models.Claim{
		ID:                  uuid.NewString(),
		KeyValue:            "gone@bank.example",
		Type:                models.ClaimTypeOwnership,
		Status:              models.ClaimStatusOpen,
		DonorISPB:           testISPB,
		ClaimerISPB:         otherISPB,
		DirectoryModifiedAt: time.Now(),
	}
	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestDirectoryClaimStaleTriggerIsDropped() {
	// The key already moved past CLAIM_PENDING; an OPEN replay is stale and
	// must not fail the poll cycle.
	key := s.seedKeyWithClaim(models.KeyStateClaimClosing)
	claim := s.snapshot(key, models.ClaimTypeOwnership, models.ClaimStatusOpen, false)

	s.Require().NoError(s.machine.HandleDirectoryClaim(s.ctx, claim))
	s.Equal(models.KeyStateClaimClosing, s.storedState(key.ID))
}

func (s *MachineSuite) TestDirectoryClaimRejectsEmptySnapshot() {
	s.ErrorIs(s.machine.HandleDirectoryClaim(s.ctx, nil), ErrValidation)
	s.ErrorIs(s.machine.HandleDirectoryClaim(s.ctx, &models.Claim{}), ErrValidation)
}
