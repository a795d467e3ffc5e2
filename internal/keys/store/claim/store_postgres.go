// Package claim persists local mirrors of directory-side claims. The mirror
// carries the directory's modified-at timestamp as a watermark; stale or
// regressive snapshots are rejected here so the poller can reprocess pages
// safely.
package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

// PostgresStore persists claim mirrors in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const claimColumns = `id, key_value, claim_type, status, donor_ispb, claimer_ispb, resolution_deadline, directory_modified_at, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	claim, err := scanClaim(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

// Upsert creates or advances the mirror. The WHERE clause on the update arm
// enforces the watermark: snapshots at or before the stored
// directory_modified_at, and any snapshot against a terminal status, match
// nothing and surface sentinel.ErrStale.
func (s *PostgresStore) Upsert(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			resolution_deadline = EXCLUDED.resolution_deadline,
			directory_modified_at = EXCLUDED.directory_modified_at,
			updated_at = now()
		WHERE claims.directory_modified_at < EXCLUDED.directory_modified_at
		  AND claims.status NOT IN ('CANCELLED', 'COMPLETED')
	`
	res, err := s.db.ExecContext(ctx, query,
		claim.ID, claim.KeyValue, claim.Type, claim.Status,
		claim.DonorISPB, claim.ClaimerISPB, claim.ResolutionDeadline, claim.DirectoryModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert claim rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrStale
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var claim models.Claim
	err := row.Scan(
		&claim.ID, &claim.KeyValue, &claim.Type, &claim.Status,
		&claim.DonorISPB, &claim.ClaimerISPB, &claim.ResolutionDeadline,
		&claim.DirectoryModifiedAt, &claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}
