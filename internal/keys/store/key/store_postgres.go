// Package key persists Pix key records. Stores are pure I/O; guard
// evaluation and transition selection belong in the keys service.
package key

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"chaveiro/internal/keys/models"
	"chaveiro/pkg/platform/sentinel"
)

// uniqueViolation is the SQLSTATE raised by the partial unique index on
// key_value over non-terminal rows.
const uniqueViolation = "23505"

// PostgresStore persists key records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed key store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const keyColumns = `id, key_value, key_type, account_id, state, claim_id, last_error, state_changed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, key *models.Key) error {
	query := `
		INSERT INTO keys (` + keyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		key.ID, key.KeyValue, key.KeyType, key.AccountID, key.State,
		key.ClaimID, key.LastError, key.StateChangedAt, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("key value already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM keys WHERE id = $1`
	key, err := scanKey(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get key: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) GetByValue(ctx context.Context, keyValue string) (*models.Key, error) {
	query := `
		SELECT ` + keyColumns + `
		FROM keys
		WHERE key_value = $1 AND NOT (state = ANY($2))
		ORDER BY created_at DESC
		LIMIT 1
	`
	key, err := scanKey(s.db.QueryRowContext(ctx, query, keyValue, terminalStates()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get key by value: %w", err)
	}
	return key, nil
}

// UpdateConditional commits the record only if the stored state still equals
// expected. The WHERE clause is the optimistic-concurrency guard: a raced
// write matches zero rows and surfaces sentinel.ErrConflict.
func (s *PostgresStore) UpdateConditional(ctx context.Context, key *models.Key, expected models.KeyState) error {
	query := `
		UPDATE keys
		SET state = $1,
		    claim_id = $2,
		    last_error = $3,
		    state_changed_at = CASE WHEN state <> $1 THEN now() ELSE state_changed_at END,
		    updated_at = now()
		WHERE id = $4 AND state = $5
	`
	res, err := s.db.ExecContext(ctx, query, key.State, key.ClaimID, key.LastError, key.ID, expected)
	if err != nil {
		return fmt.Errorf("conditional update key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional update key rows: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a lost race.
		if _, getErr := s.GetByID(ctx, key.ID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByStateOlderThan(ctx context.Context, states []models.KeyState, cutoff time.Time, limit int) ([]*models.Key, error) {
	query := `
		SELECT ` + keyColumns + `
		FROM keys
		WHERE state = ANY($1) AND state_changed_at < $2
		ORDER BY state_changed_at ASC
		LIMIT $3
	`
	stateStrings := make([]string, len(states))
	for i, st := range states {
		stateStrings[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, query, stateStrings, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list keys by state: %w", err)
	}
	defer rows.Close()

	var out []*models.Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return out, nil
}

func terminalStates() []string {
	out := make([]string, len(models.TerminalKeyStates))
	for i, st := range models.TerminalKeyStates {
		out[i] = string(st)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*models.Key, error) {
	var key models.Key
	var claimID, lastError sql.NullString
	err := row.Scan(
		&key.ID, &key.KeyValue, &key.KeyType, &key.AccountID, &key.State,
		&claimID, &lastError, &key.StateChangedAt, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if claimID.Valid {
		key.ClaimID = &claimID.String
	}
	if lastError.Valid {
		key.LastError = &lastError.String
	}
	return &key, nil
}
