package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txGuards are the session timeouts armed at the start of every revision
// transaction: lock_timeout fails fast instead of queueing behind held
// locks, statement_timeout stops a runaway schema operation from pinning
// the database. A zero value leaves the session default in place.
type txGuards struct {
	lockTimeout      time.Duration
	statementTimeout time.Duration
}

func (g txGuards) arm(ctx context.Context, tx pgx.Tx) error {
	if g.lockTimeout > 0 {
		sql := fmt.Sprintf("SET lock_timeout = '%dms'", g.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting lock_timeout: %w", err)
		}
	}

	if g.statementTimeout > 0 {
		sql := fmt.Sprintf("SET statement_timeout = '%dms'", g.statementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting statement_timeout: %w", err)
		}
	}

	return nil
}

// runInTransaction applies one revision's operations inside a single
// guarded transaction. The transaction commits only when every operation
// succeeded; any failure rolls the whole revision back.
func runInTransaction(ctx context.Context, pool *pgxpool.Pool, guards txGuards, ops []string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := guards.arm(ctx, tx); err != nil {
		return err
	}

	for _, op := range ops {
		if _, err := tx.Exec(ctx, op); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// runWithoutTransaction executes operations one by one directly on the
// pool. CREATE INDEX CONCURRENTLY refuses to run inside a transaction
// block, so revisions carrying one take this path and give up atomicity.
func runWithoutTransaction(ctx context.Context, pool *pgxpool.Pool, ops []string) error {
	for _, op := range ops {
		if _, err := pool.Exec(ctx, op); err != nil {
			return fmt.Errorf("executing outside transaction: %w", err)
		}
	}

	return nil
}
