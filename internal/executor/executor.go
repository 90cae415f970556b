package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveohlh/scopemigrate/internal/database"
	"github.com/daveohlh/scopemigrate/internal/parser"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

// Directions reported via ProgressEvent.
const (
	DirectionUpgrade   = "upgrade"
	DirectionDowngrade = "downgrade"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted by the engine for each revision processed.
type ProgressEvent struct {
	Revision  *revision.Revision
	Direction string
	Status    string
	Duration  time.Duration
	Error     error
}

// VersionStore abstracts per-scope version tracking for testability.
type VersionStore interface {
	EnsureTable(ctx context.Context, sc scope.Scope) error
	Current(ctx context.Context, sc scope.Scope) (string, error)
	SetCurrent(ctx context.Context, sc scope.Scope, revisionID string) error
	Clear(ctx context.Context, sc scope.Scope) error
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the scope's advisory lock and returns a releaser.
type lockFunc func(ctx context.Context, sc scope.Scope) (lockReleaser, error)

// opsExecFunc executes one revision's operations as an atomic unit.
type opsExecFunc func(ctx context.Context, ops []string) error

// Engine applies and reverts revisions with transaction safety, per-scope
// advisory locks, and per-step version-record updates.
type Engine struct {
	pool             *pgxpool.Pool
	store            VersionStore
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	execOps          opsExecFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Engine) { e.statementTimeout = d }
}

// WithDryRun enables dry-run mode where no SQL is executed and no version
// record is touched.
func WithDryRun(b bool) Option {
	return func(e *Engine) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each revision processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// New creates an Engine with the given pool, version store, and options.
func New(pool *pgxpool.Pool, store VersionStore, opts ...Option) *Engine {
	e := &Engine{
		pool:  pool,
		store: store,
	}

	for _, opt := range opts {
		opt(e)
	}

	// Defaults for injectable functions are set after options so tests
	// can override them.
	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context, sc scope.Scope) (lockReleaser, error) {
			return database.TryAcquireScopeLock(ctx, e.pool, sc)
		}
	}

	if e.execOps == nil {
		e.execOps = e.executeOps
	}

	return e
}

// Upgrade applies the path oldest-first, recording the version after each
// successful revision. On a mid-sequence failure it stops immediately; the
// version record stays at the last successful step and the error names the
// failing revision.
func (e *Engine) Upgrade(ctx context.Context, sc scope.Scope, path []revision.Revision) error {
	return e.run(ctx, sc, path, DirectionUpgrade)
}

// Downgrade reverts the path newest-first. After each reverted revision the
// version record moves to its parent; reverting a scope's root clears the
// record entirely.
func (e *Engine) Downgrade(ctx context.Context, sc scope.Scope, path []revision.Revision) error {
	return e.run(ctx, sc, path, DirectionDowngrade)
}

func (e *Engine) run(ctx context.Context, sc scope.Scope, path []revision.Revision, direction string) error {
	if len(path) == 0 {
		return nil
	}

	lock, err := e.acquireLock(ctx, sc)
	if err != nil {
		return fmt.Errorf("acquiring migration lock for scope %s: %w", sc, err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if !e.dryRun {
		if err := e.store.EnsureTable(ctx, sc); err != nil {
			return err
		}
	}

	for i := range path {
		if err := e.runOne(ctx, sc, &path[i], direction); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) runOne(ctx context.Context, sc scope.Scope, r *revision.Revision, direction string) error {
	if e.dryRun {
		e.fireProgress(ProgressEvent{Revision: r, Direction: direction, Status: StatusSkipped})
		return nil
	}

	ops := r.UpgradeOps
	if direction == DirectionDowngrade {
		ops = r.DowngradeOps
		if len(ops) == 0 {
			return fmt.Errorf("scope %s: revision %s: %w", sc, r.ID, ErrNoDowngradeOps)
		}
	}

	e.fireProgress(ProgressEvent{Revision: r, Direction: direction, Status: StatusStarting})

	start := time.Now()
	execErr := e.execOps(ctx, ops)
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			Revision:  r,
			Direction: direction,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		// Surfaced verbatim with scope and revision context; never retried.
		return fmt.Errorf("scope %s: revision %s (%s): %w", sc, r.ID, direction, execErr)
	}

	if err := e.record(ctx, sc, r, direction); err != nil {
		return err
	}

	e.fireProgress(ProgressEvent{
		Revision:  r,
		Direction: direction,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}

// record moves the scope's version record after one successful revision.
func (e *Engine) record(ctx context.Context, sc scope.Scope, r *revision.Revision, direction string) error {
	if direction == DirectionUpgrade {
		if err := e.store.SetCurrent(ctx, sc, r.ID); err != nil {
			return fmt.Errorf("recording revision %s for scope %s: %w", r.ID, sc, err)
		}

		return nil
	}

	if r.IsRoot() {
		if err := e.store.Clear(ctx, sc); err != nil {
			return fmt.Errorf("clearing version record for scope %s: %w", sc, err)
		}

		return nil
	}

	if err := e.store.SetCurrent(ctx, sc, r.DownID); err != nil {
		return fmt.Errorf("recording revision %s for scope %s: %w", r.DownID, sc, err)
	}

	return nil
}

// executeOps runs one revision's operations. Revisions containing a
// CREATE INDEX CONCURRENTLY run op-by-op outside a transaction; everything
// else runs as a single transaction with lock and statement timeouts.
func (e *Engine) executeOps(ctx context.Context, ops []string) error {
	concurrent := false

	for _, op := range ops {
		has, err := parser.HasConcurrentIndex(op)
		if err != nil {
			return err
		}

		if has {
			concurrent = true
			break
		}
	}

	if concurrent {
		return runWithoutTransaction(ctx, e.pool, ops)
	}

	guards := txGuards{
		lockTimeout:      e.lockTimeout,
		statementTimeout: e.statementTimeout,
	}

	return runInTransaction(ctx, e.pool, guards, ops)
}

func (e *Engine) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
