package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chaveiro/internal/directory"
	"chaveiro/internal/events"
	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/ports/mocks"
	"chaveiro/internal/keys/service"
	claimstore "chaveiro/internal/keys/store/claim"
	keystore "chaveiro/internal/keys/store/key"
	"chaveiro/internal/lock"
	"chaveiro/internal/retry"
)

type ScannerSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	keys    *keystore.MemoryStore
	gateway *mocks.MockDirectoryGateway
	machine *service.Service
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.keys = keystore.NewMemory()
	s.gateway = mocks.NewMockDirectoryGateway(s.ctrl)

	var machine *service.Service
	router := retry.NewMemoryRouter(3, retry.MarkerFunc(
		func(ctx context.Context, keyID, msg string) (*models.Key, error) {
			return machine.MarkError(ctx, keyID, msg)
		}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	machine, err := service.New(s.keys, claimstore.NewMemory(), s.gateway,
		events.NewMemoryPublisher(), router, testISPB, logger, nil)
	s.Require().NoError(err)
	s.machine = machine
}

func (s *ScannerSuite) newScanner(task service.ExpiryTask, threshold time.Duration) *Scanner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scanner, err := NewScanner(lock.NewMemory(), s.keys, s.machine, task,
		threshold, 100, 30*time.Second, 10*time.Second, logger)
	s.Require().NoError(err)
	return scanner
}

func (s *ScannerSuite) seedKey(state models.KeyState, age time.Duration) *models.Key {
	now := time.Now()
	claimID := uuid.NewString()
	key := &models.Key{
		ID:             uuid.NewString(),
		KeyValue:       uuid.NewString(),
		KeyType:        models.KeyTypeEmail,
		AccountID:      "acc-001",
		State:          state,
		ClaimID:        &claimID,
		StateChangedAt: now.Add(-age),
		CreatedAt:      now.Add(-age),
		UpdatedAt:      now.Add(-age),
	}
	s.Require().NoError(s.keys.Create(s.ctx, key))
	return key
}

func (s *ScannerSuite) taskByName(name string) service.ExpiryTask {
	for _, task := range service.ExpiryTasks() {
		if task.Name == name {
			return task
		}
	}
	s.FailNowf("unknown expiry task", "no task named %s", name)
	return service.ExpiryTask{}
}

func (s *ScannerSuite) TestExpiredClaimPendingIsClosed() {
	stale := s.seedKey(models.KeyStateClaimPending, 48*time.Hour)
	fresh := s.seedKey(models.KeyStateClaimPending, time.Hour)

	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *stale.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	scanner := s.newScanner(s.taskByName("claim-pending-expiry"), 24*time.Hour)
	s.Require().NoError(scanner.Tick(s.ctx))

	staleStored, err := s.keys.GetByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimClosed, staleStored.State)

	freshStored, err := s.keys.GetByID(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimPending, freshStored.State, "keys inside the threshold are untouched")
}

func (s *ScannerSuite) TestExpiredOwnershipWaitingIsCanceled() {
	stale := s.seedKey(models.KeyStateOwnershipWaiting, 8*24*time.Hour)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *stale.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	scanner := s.newScanner(s.taskByName("ownership-expiry"), 7*24*time.Hour)
	s.Require().NoError(scanner.Tick(s.ctx))

	stored, err := s.keys.GetByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateOwnershipCanceled, stored.State)
}

func (s *ScannerSuite) TestExpiredPortabilityStatesAreCanceled() {
	pending := s.seedKey(models.KeyStatePortabilityPending, 48*time.Hour)
	started := s.seedKey(models.KeyStatePortabilityStarted, 48*time.Hour)

	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *pending.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *started.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	scanner := s.newScanner(s.taskByName("portability-pending-expiry"), 24*time.Hour)
	s.Require().NoError(scanner.Tick(s.ctx))

	for _, id := range []string{pending.ID, started.ID} {
		stored, err := s.keys.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.KeyStatePortabilityCanceled, stored.State)
	}
}

func (s *ScannerSuite) TestOneFailedCancellationDoesNotStopTheSweep() {
	// The directory rejects the first cancellation permanently; the sweep
	// moves that key to ERROR and still processes the second one.
	rejected := s.seedKey(models.KeyStateClaimPending, 48*time.Hour)
	other := s.seedKey(models.KeyStateClaimPending, 48*time.Hour)

	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *rejected.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatus(""), &directory.RejectedError{Op: "cancel-claim", StatusCode: 422, Code: "CLAIM_ALREADY_RESOLVED"})
	s.gateway.EXPECT().
		CancelClaim(gomock.Any(), *other.ClaimID, models.ReasonDefaultOperation).
		Return(models.ClaimStatusCancelled, nil)

	scanner := s.newScanner(s.taskByName("claim-pending-expiry"), 24*time.Hour)
	s.Require().NoError(scanner.Tick(s.ctx))

	rejectedStored, err := s.keys.GetByID(s.ctx, rejected.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateError, rejectedStored.State)

	otherStored, err := s.keys.GetByID(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateClaimClosed, otherStored.State)
}
