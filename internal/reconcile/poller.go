// Package reconcile runs the scheduled jobs that keep local key state
// converged with the directory: the claim-sync poller and the expiry
// scanners. Each job runs under the distributed lock, so across all
// replicas at most one instance executes a given task at a time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/ports"
	"chaveiro/internal/platform/metrics"
	"chaveiro/pkg/platform/sentinel"
)

// lockClaimSync names the poller's distributed lock.
const lockClaimSync = "claim-sync"

// ClaimHandler feeds directory-side claim activity into the state machine.
// Implemented by the keys service.
type ClaimHandler interface {
	HandleDirectoryClaim(ctx context.Context, claim *models.Claim) error
}

// Poller discovers directory-side claim activity that did not originate
// locally and applies it through the state machine.
type Poller struct {
	locks    ports.LockManager
	gateway  ports.DirectoryGateway
	claims   ports.ClaimStore
	handler  ClaimHandler
	logger   *slog.Logger
	metrics  *metrics.Metrics
	ispb     string
	pageSize int
	lookback int
	lease    time.Duration
	refresh  time.Duration
}

// NewPoller validates collaborators and builds the poller.
func NewPoller(
	locks ports.LockManager,
	gateway ports.DirectoryGateway,
	claims ports.ClaimStore,
	handler ClaimHandler,
	ispb string,
	pageSize, lookbackDays int,
	lease, refresh time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*Poller, error) {
	if locks == nil || gateway == nil || claims == nil || handler == nil {
		return nil, fmt.Errorf("lock manager, gateway, claim store and handler are required")
	}
	if ispb == "" {
		return nil, fmt.Errorf("issuer ISPB is required")
	}
	if pageSize < 1 || lookbackDays < 1 {
		return nil, fmt.Errorf("page size and lookback days must be positive")
	}
	return &Poller{
		locks:    locks,
		gateway:  gateway,
		claims:   claims,
		handler:  handler,
		logger:   logger,
		metrics:  m,
		ispb:     ispb,
		pageSize: pageSize,
		lookback: lookbackDays,
		lease:    lease,
		refresh:  refresh,
	}, nil
}

// Tick runs one poll cycle under the claim-sync lock. A tick that loses the
// lock race is a silent skip: another replica is already polling.
func (p *Poller) Tick(ctx context.Context) error {
	acquired, err := p.locks.RunExclusive(ctx, lockClaimSync, p.lease, p.refresh, p.poll)
	if err != nil {
		p.countCycle("error")
		return err
	}
	if !acquired {
		p.countCycle("skipped")
		return nil
	}
	p.countCycle("completed")
	return nil
}

// poll pages through changed claims, advancing each one independently:
// one bad claim is logged and skipped, never failing the page. Losing the
// lock lease cancels ctx and stops before the next claim.
func (p *Poller) poll(ctx context.Context) error {
	pageToken := ""
	for {
		claims, next, err := p.gateway.ListClaims(ctx, p.ispb, p.pageSize, p.lookback, pageToken)
		if err != nil {
			return fmt.Errorf("list claims: %w", err)
		}
		for _, claim := range claims {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.processClaim(ctx, claim)
		}
		if next == "" {
			return nil
		}
		pageToken = next
	}
}

// processClaim feeds a snapshot that carries new information through the
// state machine, then advances the mirror's watermark. The mirror moves
// only after the snapshot was applied: a watermark written ahead of a
// failed application would mark the snapshot as seen and it would never be
// re-fed, which for a terminal directory status means never at all.
func (p *Poller) processClaim(ctx context.Context, claim *models.Claim) {
	existing, err := p.claims.Get(ctx, claim.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "failed to read claim mirror",
				"claim_id", claim.ID, "error", err)
		}
		return
	}
	if !claim.Supersedes(existing) {
		return
	}
	if err := p.handler.HandleDirectoryClaim(ctx, claim); err != nil {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "failed to apply directory claim",
				"claim_id", claim.ID, "status", claim.Status, "error", err)
		}
		return
	}
	if err := p.claims.Upsert(ctx, claim); err != nil {
		if !errors.Is(err, sentinel.ErrStale) && p.logger != nil {
			p.logger.WarnContext(ctx, "failed to mirror claim",
				"claim_id", claim.ID, "error", err)
		}
		return
	}
	if p.metrics != nil {
		p.metrics.ClaimsDiscovered.Inc()
	}
}

func (p *Poller) countCycle(outcome string) {
	if p.metrics != nil {
		p.metrics.PollerCycles.WithLabelValues(outcome).Inc()
	}
}
