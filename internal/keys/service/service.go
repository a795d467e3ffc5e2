// Package service implements the key-claim state machine: one guarded
// transition per invocation, idempotent under at-least-once delivery,
// committed with a conditional write and followed by exactly one event.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chaveiro/internal/directory"
	"chaveiro/internal/events"
	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/ports"
	"chaveiro/internal/platform/metrics"
	"chaveiro/pkg/platform/sentinel"
)

var tracer = otel.Tracer("chaveiro/internal/keys/service")

// ErrRetryScheduled reports that a transient gateway failure was absorbed:
// the trigger is queued for redelivery and local state is unchanged. Async
// callers treat it as success; the HTTP layer answers 202.
var ErrRetryScheduled = errors.New("retry scheduled")

// ErrValidation wraps missing-input failures rejected before any repository
// or gateway access.
var ErrValidation = errors.New("validation")

// Service is the key state machine. All collaborators come in through
// constructor injection; there is no ambient container.
type Service struct {
	keys      ports.KeyStore
	claims    ports.ClaimStore
	gateway   ports.DirectoryGateway
	publisher ports.EventPublisher
	retry     ports.RetryRouter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ispb      string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for timestamps (tests pin it).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates collaborators and builds the state machine.
func New(
	keys ports.KeyStore,
	claims ports.ClaimStore,
	gateway ports.DirectoryGateway,
	publisher ports.EventPublisher,
	retry ports.RetryRouter,
	ispb string,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) (*Service, error) {
	if keys == nil {
		return nil, fmt.Errorf("key store is required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claim store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("directory gateway is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if retry == nil {
		return nil, fmt.Errorf("retry router is required")
	}
	if ispb == "" {
		return nil, fmt.Errorf("participant ISPB is required")
	}
	s := &Service{
		keys:      keys,
		claims:    claims,
		gateway:   gateway,
		publisher: publisher,
		retry:     retry,
		logger:    logger,
		metrics:   m,
		ispb:      ispb,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// GetKey returns the key by id, including its last error when stuck in
// ERROR.
func (s *Service) GetKey(ctx context.Context, id string) (*models.Key, error) {
	if id == "" {
		return nil, fmt.Errorf("key id is required: %w", ErrValidation)
	}
	return s.keys.GetByID(ctx, id)
}

// GetKeyByValue returns the live (non-terminal) key holding the value.
func (s *Service) GetKeyByValue(ctx context.Context, keyValue string) (*models.Key, error) {
	if keyValue == "" {
		return nil, fmt.Errorf("key value is required: %w", ErrValidation)
	}
	return s.keys.GetByValue(ctx, keyValue)
}

// gatewayCall is the optional directory interaction a transition performs
// between its guard and its commit. It may mutate the key (e.g. attach a
// claim id) before the conditional write.
type gatewayCall func(ctx context.Context, key *models.Key) error

// apply executes one transition under the table guard.
//
// Contract, in order:
//  1. key already in the target state: return it untouched, no gateway
//     call, no event (replay safety under at-least-once delivery)
//  2. key in none of the source states: ErrInvalidState, no side effect
//  3. gateway call, when present: a transient failure routes the trigger to
//     the retry channel and returns ErrRetryScheduled with state untouched;
//     a rejection commits ERROR with the directory code recorded
//  4. conditional write guarded by the state read at entry; a raced writer
//     surfaces sentinel.ErrConflict
//  5. exactly one event naming the new state
func (s *Service) apply(ctx context.Context, key *models.Key, op models.Operation, reason models.ClaimReason, attempt int, call gatewayCall) (*models.Key, error) {
	t, ok := transitions[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	ctx, span := tracer.Start(ctx, "keys."+string(op))
	defer span.End()
	span.SetAttributes(
		attribute.String("key.id", key.ID),
		attribute.String("key.state", string(key.State)),
	)

	if key.State == t.target {
		s.count(op, "noop")
		return key, nil
	}
	if !t.allowsSource(key.State) {
		s.count(op, "invalid_state")
		return nil, fmt.Errorf("operation %s not allowed from state %s: %w", op, key.State, sentinel.ErrInvalidState)
	}

	entryState := key.State
	if call != nil {
		if err := call(ctx, key); err != nil {
			return s.handleGatewayFailure(ctx, key, op, reason, attempt, err)
		}
	}

	key.State = t.target
	key.LastError = nil
	if err := s.keys.UpdateConditional(ctx, key, entryState); err != nil {
		s.count(op, "conflict")
		return nil, fmt.Errorf("commit %s: %w", op, err)
	}

	s.publish(ctx, events.Event{
		Name:      t.event,
		KeyID:     key.ID,
		KeyValue:  key.KeyValue,
		OldState:  string(entryState),
		NewState:  string(t.target),
		ClaimID:   claimIDOf(key),
		Reason:    string(reason),
		Timestamp: s.now(),
	})
	s.count(op, "committed")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "key transition committed",
			"op", op, "key_id", key.ID, "from", entryState, "to", t.target)
	}
	return key, nil
}

// handleGatewayFailure splits the directory error taxonomy: transient goes
// back through the retry router with local state untouched; a rejection is
// permanent and commits ERROR with the code recorded.
func (s *Service) handleGatewayFailure(ctx context.Context, key *models.Key, op models.Operation, reason models.ClaimReason, attempt int, err error) (*models.Key, error) {
	if rejected, ok := directory.IsRejected(err); ok {
		s.count(op, "rejected")
		msg := rejected.Code
		if rejected.Message != "" {
			msg = rejected.Code + ": " + rejected.Message
		}
		return s.MarkError(ctx, key.ID, msg)
	}
	if directory.IsTransient(err) {
		s.count(op, "retry")
		trigger := models.RetryTrigger{
			Operation: op,
			KeyID:     key.ID,
			ClaimID:   claimIDOf(key),
			Reason:    reason,
			Attempt:   attempt + 1,
			FailedAt:  s.now(),
			LastError: err.Error(),
		}
		if routeErr := s.retry.Route(ctx, trigger); routeErr != nil {
			return nil, fmt.Errorf("route retry for %s: %w", op, routeErr)
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "gateway failure routed to retry",
				"op", op, "key_id", key.ID, "attempt", trigger.Attempt, "error", err)
		}
		return key, ErrRetryScheduled
	}
	return nil, fmt.Errorf("gateway call for %s: %w", op, err)
}

// MarkError moves the key to ERROR and records the reason. Terminal keys are
// left alone; an ERROR key receiving another error just updates the reason.
func (s *Service) MarkError(ctx context.Context, keyID string, errMsg string) (*models.Key, error) {
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.State.IsTerminal() {
		return nil, fmt.Errorf("key %s already terminal: %w", keyID, sentinel.ErrInvalidState)
	}
	entryState := key.State
	key.State = models.KeyStateError
	key.LastError = &errMsg
	if err := s.keys.UpdateConditional(ctx, key, entryState); err != nil {
		return nil, fmt.Errorf("commit error state: %w", err)
	}
	if entryState != models.KeyStateError {
		s.publish(ctx, events.Event{
			Name:      "key-error",
			KeyID:     key.ID,
			KeyValue:  key.KeyValue,
			OldState:  string(entryState),
			NewState:  string(models.KeyStateError),
			ClaimID:   claimIDOf(key),
			Reason:    errMsg,
			Timestamp: s.now(),
		})
	}
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "key moved to error state",
			"key_id", key.ID, "from", entryState, "reason", errMsg)
	}
	return key, nil
}

// publish emits the transition event. Publish failures are logged, not
// propagated: the transition already committed and delivery is
// at-least-once, so downstreams reconcile from state, never from a missing
// event alone.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish transition event",
			"event", event.Name, "key_id", event.KeyID, "error", err)
	}
}

// publishTransition emits an event for a commit made outside the table
// (forceState replays of directory outcomes).
func (s *Service) publishTransition(ctx context.Context, key *models.Key, event string, from models.KeyState, reason models.ClaimReason) {
	s.publish(ctx, events.Event{
		Name:      event,
		KeyID:     key.ID,
		KeyValue:  key.KeyValue,
		OldState:  string(from),
		NewState:  string(key.State),
		ClaimID:   claimIDOf(key),
		Reason:    string(reason),
		Timestamp: s.now(),
	})
}

func (s *Service) count(op models.Operation, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(op), outcome)
	}
}

func claimIDOf(key *models.Key) string {
	if key.ClaimID == nil {
		return ""
	}
	return *key.ClaimID
}

// loadKey fetches and validates the key id for the public operations.
func (s *Service) loadKey(ctx context.Context, keyID string) (*models.Key, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key id is required: %w", ErrValidation)
	}
	return s.keys.GetByID(ctx, keyID)
}
