package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// LockHandle wraps a dedicated pooled connection holding a session-level
// advisory lock for one scope. Call Release to unlock and return the
// connection to the pool.
type LockHandle struct {
	conn   *pgxpool.Conn
	lockID int64
}

// TryAcquireScopeLock attempts to acquire the session-level advisory lock
// for the given scope. Each scope has its own lock id, so migrating one
// scope never blocks on another. Returns ErrLockNotAcquired when another
// process already holds the scope's lock.
func TryAcquireScopeLock(ctx context.Context, pool *pgxpool.Pool, s scope.Scope) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for scope %s lock: %w", s, err)
	}

	lockID := s.LockID()

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock for scope %s: %w", s, err)
	}

	if !acquired {
		conn.Release()

		return nil, fmt.Errorf("scope %s: %w", s, ErrLockNotAcquired)
	}

	return &LockHandle{conn: conn, lockID: lockID}, nil
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", h.lockID)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock %d: %w", h.lockID, err)
	}

	return nil
}
