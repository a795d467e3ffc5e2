package service

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
	claimstore "chaveiro/internal/keys/store/claim"
	keystore "chaveiro/internal/keys/store/key"
	"chaveiro/internal/retry"
	"chaveiro/pkg/platform/sentinel"
)

const (
	testISPB      = "12345678"
	otherISPB     = "87654321"
	retryBudget   = 3
	testAccountID = "acc-001"
)

type MachineSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	keys      *keystore.MemoryStore
	claims    *claimstore.MemoryStore
	gateway   *mocks.MockDirectoryGateway
	publisher *events.MemoryPublisher
	router    *retry.MemoryRouter
	machine   *Service
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.keys = keystore.NewMemory()
	s.claims = claimstore.NewMemory()
	s.gateway = mocks.NewMockDirectoryGateway(s.ctrl)
	s.publisher = events.NewMemoryPublisher()

	var machine *Service
	s.router = retry.NewMemoryRouter(retryBudget, retry.MarkerFunc(
		func(ctx context.Context, keyID, msg string) (*models.Key, error) {
			return machine.MarkError(ctx, keyID, msg)
		}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	machine, err = New(s.keys, s.claims, s.gateway, s.publisher, s.router, testISPB, logger, nil)
	s.Require().NoError(err)
	s.machine = machine
}

// seedKey plants a key directly in the store at the given state.
func (s *MachineSuite) seedKey(state models.KeyState) *models.Key {
	now := time.Now()
	key := &models.Key{
		ID:             uuid.NewString(),
		KeyValue:       uuid.NewString(),
		KeyType:        models.KeyTypeEmail,
		AccountID:      testAccountID,
		State:          state,
		StateChangedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.keys.Create(s.ctx, key))
	return key
}

// seedKeyWithClaim plants a key with an attached in-flight claim.
func (s *MachineSuite) seedKeyWithClaim(state models.KeyState) *models.Key {
	key := s.seedKey(state)
	claimID := uuid.NewString()
	key.ClaimID = &claimID
	s.Require().NoError(s.keys.UpdateConditional(s.ctx, key, state))
	return key
}

func (s *MachineSuite) storedState(keyID string) models.KeyState {
	key, err := s.keys.GetByID(s.ctx, keyID)
	s.Require().NoError(err)
	return key.State
}

func (s *MachineSuite) eventNames() []string {
	var names []string
	for _, e := range s.publisher.Events() {
		names = append(names, e.Name)
	}
	return names
}

func (s *MachineSuite) TestRegisterKey() {
	s.Run("creates a pending record and emits key-pending", func() {
		key, err := s.machine.RegisterKey(s.ctx, "user@bank.example", models.KeyTypeEmail, testAccountID)
		s.Require().NoError(err)
		s.Equal(models.KeyStatePending, key.State)
		s.Equal([]string{"key-pending"}, s.eventNames())
	})

	s.Run("generates a value for random keys", func() {
		key, err := s.machine.RegisterKey(s.ctx, "", models.KeyTypeRandom, testAccountID)
		s.Require().NoError(err)
		s.NotEmpty(key.KeyValue)
		_, err = uuid.Parse(key.KeyValue)
		s.NoError(err)
	})

	s.Run("rejects a live duplicate value", func() {
		_, err := s.machine.RegisterKey(s.ctx, "dup@bank.example", models.KeyTypeEmail, testAccountID)
		s.Require().NoError(err)
		_, err = s.machine.RegisterKey(s.ctx, "dup@bank.example", models.KeyTypeEmail, "acc-002")
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects missing inputs", func() {
		_, err := s.machine.RegisterKey(s.ctx, "", models.KeyTypeEmail, testAccountID)
		s.ErrorIs(err, ErrValidation)
		_, err = s.machine.RegisterKey(s.ctx, "a@b.c", models.KeyTypeEmail, "")
		s.ErrorIs(err, ErrValidation)
		_, err = s.machine.RegisterKey(s.ctx, "a@b.c", models.KeyType("CNPJ"), testAccountID)
		s.ErrorIs(err, ErrValidation)
	})
}

func (s *MachineSuite) TestConfirmAndActivate() {
	key := s.seedKey(models.KeyStatePending)
	s.gateway.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any(), testISPB).
		Return(nil)

	confirmed, err := s.machine.ConfirmKey(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateConfirmed, confirmed.State)

	ready, err := s.machine.ActivateKey(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateReady, ready.State)
	s.Equal([]string{"key-confirmed", "key-ready"}, s.eventNames())
}

func (s *MachineSuite) TestReplayIsPureNoOp() {
	// No gateway expectation: a replayed confirm on a CONFIRMED key must not
	// touch the directory or emit anything.
	key := s.seedKey(models.KeyStateConfirmed)

	replayed, err := s.machine.ConfirmKey(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateConfirmed, replayed.State)
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestInvalidStateIsRejectedWithoutSideEffects() {
	key := s.seedKey(models.KeyStatePending)

	_, err := s.machine.ActivateKey(s.ctx, key.ID)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal(models.KeyStatePending, s.storedState(key.ID))
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestPinnedClockStampsEventsAndTriggers() {
	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	machine, err := New(s.keys, s.claims, s.gateway, s.publisher, s.router, testISPB, logger, nil,
		WithClock(func() time.Time { return frozen }))
	s.Require().NoError(err)

	key, err := machine.RegisterKey(s.ctx, "pinned@bank.example", models.KeyTypeEmail, testAccountID)
	s.Require().NoError(err)

	published := s.publisher.Events()
	s.Require().Len(published, 1)
	s.Equal(frozen, published[0].Timestamp)

	s.gateway.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any(), testISPB).
		Return(&directory.TransientError{Op: "createEntry", StatusCode: 503})
	_, err = machine.ConfirmKey(s.ctx, key.ID)
	s.Require().ErrorIs(err, ErrRetryScheduled)

	s.Require().Equal(1, s.router.RetriedCount())
	s.Equal(frozen, s.router.Retried[0].FailedAt)
}

func (s *MachineSuite) TestTransientFailureSchedulesRetry() {
	key := s.seedKey(models.KeyStatePending)
	s.gateway.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any(), testISPB).
		Return(&directory.TransientError{Op: "createEntry", StatusCode: 503})

	_, err := s.machine.ConfirmKey(s.ctx, key.ID)
	s.Require().ErrorIs(err, ErrRetryScheduled)

	s.Equal(models.KeyStatePending, s.storedState(key.ID), "state must be untouched between attempts")
	s.Empty(s.publisher.Events())
	s.Require().Equal(1, s.router.RetriedCount())
	trigger := s.router.Retried[0]
	s.Equal(models.OpConfirmKey, trigger.Operation)
	s.Equal(key.ID, trigger.KeyID)
	s.Equal(1, trigger.Attempt)
}

func (s *MachineSuite) TestRetryExhaustionDeadLettersAndMarksError() {
	key := s.seedKey(models.KeyStatePending)
	s.gateway.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any(), testISPB).
		Return(&directory.TransientError{Op: "createEntry", StatusCode: 503})

	err := s.machine.ApplyTrigger(s.ctx, models.RetryTrigger{
		Operation: models.OpConfirmKey,
		KeyID:     key.ID,
		Attempt:   retryBudget,
	})
	s.Require().NoError(err, "redelivery itself succeeded; the budget decision is the router's")

	s.Equal(1, s.router.DeadCount())
	stored, getErr := s.keys.GetByID(s.ctx, key.ID)
	s.Require().NoError(getErr)
	s.Equal(models.KeyStateError, stored.State)
	s.Require().NotNil(stored.LastError)
	s.Contains(*stored.LastError, "retries exhausted")
	s.Equal([]string{"key-error"}, s.eventNames())
}

func (s *MachineSuite) TestRejectionMarksErrorWithDirectoryCode() {
	key := s.seedKey(models.KeyStatePending)
	s.gateway.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any(), testISPB).
		Return(&directory.RejectedError{Op: "createEntry", StatusCode: 400, Code: "ENTRY_INVALID", Message: "key value malformed"})

	errored, err := s.machine.ConfirmKey(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateError, errored.State)
	s.Require().NotNil(errored.LastError)
	s.Equal("ENTRY_INVALID: key value malformed", *errored.LastError)
	s.Equal(0, s.router.RetriedCount(), "rejections are permanent, never retried")
	s.Equal([]string{"key-error"}, s.eventNames())
}

func (s *MachineSuite) TestDeleteFlow() {
	s.Run("ready key deletes through the directory", func() {
		key := s.seedKey(models.KeyStateReady)
		s.gateway.EXPECT().
			DeleteEntry(gomock.Any(), key.KeyValue, testISPB).
			Return(nil)

		deleting, err := s.machine.DeleteKey(s.ctx, key.ID)
		s.Require().NoError(err)
		s.Equal(models.KeyStateDeleting, deleting.State)

		deleted, err := s.machine.ConfirmDeletion(s.ctx, key.ID)
		s.Require().NoError(err)
		s.Equal(models.KeyStateDeleted, deleted.State)
	})

	s.Run("error key has a delete exit path", func() {
		key := s.seedKey(models.KeyStateError)
		deleting, err := s.machine.DeleteKey(s.ctx, key.ID)
		s.Require().NoError(err)
		s.Equal(models.KeyStateDeleting, deleting.State)
	})
}

func (s *MachineSuite) TestDeletedValueCanBeRegisteredAgain() {
	key := s.seedKey(models.KeyStateDeleted)
	key.KeyValue = "reborn@bank.example"
	s.Require().NoError(s.keys.UpdateConditional(s.ctx, key, models.KeyStateDeleted))

	fresh, err := s.machine.RegisterKey(s.ctx, "reborn@bank.example", models.KeyTypeEmail, testAccountID)
	s.Require().NoError(err)
	s.Equal(models.KeyStatePending, fresh.State)
}

func (s *MachineSuite) TestMarkErrorLeavesTerminalKeysAlone() {
	key := s.seedKey(models.KeyStateDeleted)
	_, err := s.machine.MarkError(s.ctx, key.ID, "late failure")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal(models.KeyStateDeleted, s.storedState(key.ID))
}

func (s *MachineSuite) TestConcurrentCommitSurfacesConflict() {
	ctrl := gomock.NewController(s.T())
	keys := mocks.NewMockKeyStore(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	machine, err := New(keys, s.claims, s.gateway, s.publisher, s.router, testISPB, logger, nil)
	s.Require().NoError(err)

	key := &models.Key{ID: "k1", KeyValue: "v1", State: models.KeyStatePending}
	keys.EXPECT().GetByID(gomock.Any(), "k1").Return(key, nil)
	s.gateway.EXPECT().CreateEntry(gomock.Any(), gomock.Any(), testISPB).Return(nil)
	keys.EXPECT().
		UpdateConditional(gomock.Any(), gomock.Any(), models.KeyStatePending).
		Return(sentinel.ErrConflict)

	_, err = machine.ConfirmKey(s.ctx, "k1")
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Empty(s.publisher.Events())
}

func (s *MachineSuite) TestGetKeyExposesLastError() {
	key := s.seedKey(models.KeyStateReady)
	_, err := s.machine.MarkError(s.ctx, key.ID, "directory rejected the entry")
	s.Require().NoError(err)

	got, err := s.machine.GetKey(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.KeyStateError, got.State)
	s.Require().NotNil(got.LastError)
	s.Equal("directory rejected the entry", *got.LastError)
}
