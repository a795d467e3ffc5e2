// Package ports defines shared interfaces for the keys module.
// Interfaces are placed here when consumed by multiple services to avoid
// duplication; implementations live in internal/keys/store,
// internal/directory, internal/events, internal/lock and internal/retry.
package ports

import (
	"context"
	"time"

	"chaveiro/internal/events"
	"chaveiro/internal/keys/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// KeyStore persists key records. Stores are pure I/O; guard evaluation and
// transition selection belong in the service.
type KeyStore interface {
	// Create inserts a new key record. Returns sentinel.ErrConflict when a
	// non-terminal record already holds the key value.
	Create(ctx context.Context, key *models.Key) error

	// GetByID returns the key or sentinel.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Key, error)

	// GetByValue returns the non-terminal key holding the value, or
	// sentinel.ErrNotFound.
	GetByValue(ctx context.Context, keyValue string) (*models.Key, error)

	// UpdateConditional writes the record only if the stored state still
	// equals expected. Returns sentinel.ErrConflict when another writer
	// raced ahead, sentinel.ErrNotFound when the row is gone.
	UpdateConditional(ctx context.Context, key *models.Key, expected models.KeyState) error

	// ListByStateOlderThan returns keys in any of the given states whose
	// state-entry timestamp is before the cutoff. Used by the expiry
	// scanner.
	ListByStateOlderThan(ctx context.Context, states []models.KeyState, cutoff time.Time, limit int) ([]*models.Key, error)
}

// ClaimStore persists local mirrors of directory claims.
type ClaimStore interface {
	// Get returns the claim mirror or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Claim, error)

	// Upsert creates or replaces the mirror, but never regresses a
	// terminal status and never applies a snapshot at or before the
	// stored watermark (returns sentinel.ErrStale in both cases).
	Upsert(ctx context.Context, claim *models.Claim) error
}

// DirectoryGateway is the only path to the external directory. Errors are
// either directory.TransientError (retryable) or directory.RejectedError
// (permanent); callers branch with errors.As.
type DirectoryGateway interface {
	// CreateEntry registers the key value with the directory.
	CreateEntry(ctx context.Context, key *models.Key, participantISPB string) error

	// DeleteEntry removes the key value from the directory.
	DeleteEntry(ctx context.Context, keyValue string, participantISPB string) error

	// CreateClaim opens a claim for the key value on behalf of the
	// participant.
	CreateClaim(ctx context.Context, claimType models.ClaimType, keyValue string, participantISPB string) (*models.Claim, error)

	// ConfirmClaim confirms the claim on the directory side.
	ConfirmClaim(ctx context.Context, claimID string) (models.ClaimStatus, time.Time, error)

	// CancelClaim cancels the claim with the cancellation code derived
	// from the reason.
	CancelClaim(ctx context.Context, claimID string, reason models.ClaimReason) (models.ClaimStatus, error)

	// ListClaims pages through claims involving the issuer that changed
	// within the lookback window. An empty next token ends the listing.
	ListClaims(ctx context.Context, issuerISPB string, pageSize int, lookbackDays int, pageToken string) ([]*models.Claim, string, error)
}

// EventPublisher emits one domain event per committed transition. Delivery
// is at-least-once; consumers must be idempotent on (key id, new state).
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// LockManager grants mutual exclusion for a named recurring task across all
// service instances.
type LockManager interface {
	// RunExclusive acquires the named lock and runs fn while a background
	// refresh extends the lease. Returns acquired=false (and a nil error)
	// when another instance holds the lock. Losing the lease cancels fn's
	// context; fn must stop committing side effects once canceled.
	RunExclusive(ctx context.Context, name string, lease, refresh time.Duration, fn func(ctx context.Context) error) (acquired bool, err error)
}

// RetryRouter re-queues a trigger whose gateway call failed transiently.
// Local key state is untouched between attempts; exhausting the attempt
// budget routes the trigger to the dead-letter channel and surfaces the key
// as ERROR.
type RetryRouter interface {
	Route(ctx context.Context, trigger models.RetryTrigger) error
}
