package claim

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

type ClaimStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func (s *ClaimStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func TestClaimStoreSuite(t *testing.T) {
	suite.Run(t, new(ClaimStoreSuite))
}

func (s *ClaimStoreSuite) newClaim(status models.ClaimStatus, modifiedAt time.Time) *models.Claim {
	return &models.Claim{
		ID:                  uuid.NewString(),
		KeyValue:            "k@bank.example",
		Type:                models.ClaimTypeOwnership,
		Status:              status,
		DonorISPB:           "11111111",
		ClaimerISPB:         "22222222",
		ResolutionDeadline:  time.Now().Add(7 * 24 * time.Hour),
		DirectoryModifiedAt: modifiedAt,
	}
}

func (s *ClaimStoreSuite) TestUpsertCreatesAndAdvances() {
	claim := s.newClaim(models.ClaimStatusOpen, time.Now().Add(-time.Hour))
	s.Require().NoError(s.store.Upsert(s.ctx, claim))

	advanced := claim.Clone()
	advanced.Status = models.ClaimStatusWaitingResolution
	advanced.DirectoryModifiedAt = time.Now()
	s.Require().NoError(s.store.Upsert(s.ctx, advanced))

	stored, err := s.store.Get(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.ClaimStatusWaitingResolution, stored.Status)
}

func (s *ClaimStoreSuite) TestUpsertRejectsStaleSnapshot() {
	claim := s.newClaim(models.ClaimStatusWaitingResolution, time.Now())
	s.Require().NoError(s.store.Upsert(s.ctx, claim))

	stale := claim.Clone()
	stale.Status = models.ClaimStatusOpen
	stale.DirectoryModifiedAt = claim.DirectoryModifiedAt.Add(-time.Minute)
	s.Require().ErrorIs(s.store.Upsert(s.ctx, stale), sentinel.ErrStale)

	// Equal watermark is stale too: replays of the same page are skipped.
	replay := claim.Clone()
	s.Require().ErrorIs(s.store.Upsert(s.ctx, replay), sentinel.ErrStale)
}

func (s *ClaimStoreSuite) TestUpsertNeverRegressesTerminalStatus() {
	claim := s.newClaim(models.ClaimStatusCancelled, time.Now().Add(-time.Hour))
	s.Require().NoError(s.store.Upsert(s.ctx, claim))

	revived := claim.Clone()
	revived.Status = models.ClaimStatusOpen
	revived.DirectoryModifiedAt = time.Now()
	s.Require().ErrorIs(s.store.Upsert(s.ctx, revived), sentinel.ErrStale)
}

func (s *ClaimStoreSuite) TestGetUnknownClaim() {
	_, err := s.store.Get(s.ctx, uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
