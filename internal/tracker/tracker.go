package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// undefinedTableCode is the PostgreSQL error code for a missing relation.
const undefinedTableCode = "42P01"

// Store persists, per scope, the identifier of the most recently applied
// revision. Each scope's record lives in its own tracking table whose name
// is derived deterministically from the scope identifier, so applying or
// reverting one scope's migrations can never mutate another's state.
type Store struct {
	pool   *pgxpool.Pool
	prefix string
}

// New creates a Store backed by the given connection pool. The prefix
// configures the tracking-table name derivation.
func New(pool *pgxpool.Pool, prefix string) *Store {
	return &Store{pool: pool, prefix: prefix}
}

// TableName returns the scope's tracking-table name.
func (s *Store) TableName(sc scope.Scope) string {
	return sc.VersionTable(s.prefix)
}

// EnsureTable creates the scope's tracking table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context, sc scope.Scope) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    revision_id  TEXT NOT NULL,
    recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.TableName(sc))

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("scope %s: %w: %w", sc, ErrTableCreation, err)
	}

	return nil
}

// Current returns the scope's recorded revision id. A scope that was never
// migrated (no table) or fully downgraded (empty table) yields ErrNoVersion.
func (s *Store) Current(ctx context.Context, sc scope.Scope) (string, error) {
	var revisionID string

	query := fmt.Sprintf("SELECT revision_id FROM %s LIMIT 1", s.TableName(sc))

	err := s.pool.QueryRow(ctx, query).Scan(&revisionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
			return "", fmt.Errorf("scope %s: %w", sc, ErrNoVersion)
		}

		return "", fmt.Errorf("reading version record for scope %s: %w", sc, err)
	}

	return revisionID, nil
}

// SetCurrent records the scope's current revision id, creating the record
// on the scope's first migration and replacing it afterwards. Runs in a
// transaction so the record is never observed half-updated.
func (s *Store) SetCurrent(ctx context.Context, sc scope.Scope, revisionID string) error {
	if err := s.EnsureTable(ctx, sc); err != nil {
		return err
	}

	table := s.TableName(sc)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recording version for scope %s: %w", sc, err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("replacing version record for scope %s: %w", sc, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (revision_id) VALUES ($1)", table)
	if _, err := tx.Exec(ctx, insert, revisionID); err != nil {
		return fmt.Errorf("recording revision %s for scope %s: %w", revisionID, sc, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("recording version for scope %s: %w", sc, err)
	}

	return nil
}

// Clear removes the scope's version record entirely. Used when a downgrade
// reverts below the scope's root. Clearing an untracked scope is a no-op.
func (s *Store) Clear(ctx context.Context, sc scope.Scope) error {
	query := fmt.Sprintf("DELETE FROM %s", s.TableName(sc))

	if _, err := s.pool.Exec(ctx, query); err != nil {
		if isUndefinedTable(err) {
			return nil
		}

		return fmt.Errorf("clearing version record for scope %s: %w", sc, err)
	}

	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
