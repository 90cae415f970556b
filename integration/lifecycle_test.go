//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/executor"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/scope"
	"github.com/daveohlh/scopemigrate/internal/tracker"
)

func coreChain() []revision.Revision {
	return []revision.Revision{
		{
			ID:           "aaa111aaa111",
			Scope:        scope.Core,
			Message:      "create accounts",
			UpgradeOps:   []string{"CREATE TABLE accounts (id BIGSERIAL PRIMARY KEY, email TEXT NOT NULL)"},
			DowngradeOps: []string{"DROP TABLE accounts"},
		},
		{
			ID:           "bbb222bbb222",
			DownID:       "aaa111aaa111",
			Scope:        scope.Core,
			Message:      "add name column",
			UpgradeOps:   []string{"ALTER TABLE accounts ADD COLUMN name TEXT"},
			DowngradeOps: []string{"ALTER TABLE accounts DROP COLUMN name"},
		},
	}
}

func billingChain() []revision.Revision {
	return []revision.Revision{
		{
			ID:           "ccc333ccc333",
			Scope:        scope.Scope("billing"),
			BranchLabel:  "billing",
			Message:      "create invoices",
			UpgradeOps:   []string{"CREATE TABLE invoices (id BIGSERIAL PRIMARY KEY, amount_cents BIGINT NOT NULL)"},
			DowngradeOps: []string{"DROP TABLE invoices"},
		},
	}
}

func TestUpgrade_multiScope_roundTrip(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")
	engine := executor.New(pool, store,
		executor.WithLockTimeout(5*time.Second),
		executor.WithStatementTimeout(30*time.Second),
	)

	// Core first, then the extension.
	require.NoError(t, engine.Upgrade(ctx, scope.Core, coreChain()))
	require.NoError(t, engine.Upgrade(ctx, scope.Scope("billing"), billingChain()))

	assert.True(t, tableExists(t, pool, "accounts"))
	assert.True(t, tableExists(t, pool, "invoices"))

	coreCurrent, err := store.Current(ctx, scope.Core)
	require.NoError(t, err)
	assert.Equal(t, "bbb222bbb222", coreCurrent)

	billingCurrent, err := store.Current(ctx, scope.Scope("billing"))
	require.NoError(t, err)
	assert.Equal(t, "ccc333ccc333", billingCurrent)

	// Reverting the extension leaves core untouched.
	require.NoError(t, engine.Downgrade(ctx, scope.Scope("billing"), billingChain()))

	assert.False(t, tableExists(t, pool, "invoices"))
	assert.True(t, tableExists(t, pool, "accounts"))

	_, err = store.Current(ctx, scope.Scope("billing"))
	require.ErrorIs(t, err, tracker.ErrNoVersion)

	coreCurrent, err = store.Current(ctx, scope.Core)
	require.NoError(t, err)
	assert.Equal(t, "bbb222bbb222", coreCurrent)

	// Full core revert, newest first.
	chain := coreChain()
	require.NoError(t, engine.Downgrade(ctx, scope.Core, []revision.Revision{chain[1], chain[0]}))

	assert.False(t, tableExists(t, pool, "accounts"))

	_, err = store.Current(ctx, scope.Core)
	require.ErrorIs(t, err, tracker.ErrNoVersion)
}

func TestUpgrade_midFailure_keepsLastSuccess(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")
	engine := executor.New(pool, store)

	chain := coreChain()
	chain[1].UpgradeOps = []string{"ALTER TABLE missing_table ADD COLUMN broken TEXT"}

	err := engine.Upgrade(ctx, scope.Core, chain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bbb222bbb222")

	// The record stays at the last revision that committed.
	current, storeErr := store.Current(ctx, scope.Core)
	require.NoError(t, storeErr)
	assert.Equal(t, "aaa111aaa111", current)
	assert.True(t, tableExists(t, pool, "accounts"))
}

func TestUpgrade_failedRevision_rollsBackAtomically(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")
	engine := executor.New(pool, store)

	// Second op fails, so the first op's table must not survive.
	chain := []revision.Revision{{
		ID:    "ddd444ddd444",
		Scope: scope.Core,
		UpgradeOps: []string{
			"CREATE TABLE half_done (id BIGINT)",
			"ALTER TABLE missing_table ADD COLUMN broken TEXT",
		},
	}}

	err := engine.Upgrade(ctx, scope.Core, chain)
	require.Error(t, err)

	assert.False(t, tableExists(t, pool, "half_done"))

	_, err = store.Current(ctx, scope.Core)
	require.ErrorIs(t, err, tracker.ErrNoVersion)
}

func TestUpgrade_statementTimeout_cancelsRunawayOp(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")
	engine := executor.New(pool, store,
		executor.WithStatementTimeout(500*time.Millisecond),
	)

	chain := []revision.Revision{{
		ID:         "abc123abc123",
		Scope:      scope.Core,
		UpgradeOps: []string{"SELECT pg_sleep(10)"},
	}}

	err := engine.Upgrade(ctx, scope.Core, chain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement timeout")

	// The cancelled revision never commits and is never recorded.
	_, err = store.Current(ctx, scope.Core)
	require.ErrorIs(t, err, tracker.ErrNoVersion)
}

func TestUpgrade_progressEvents(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")

	var events []executor.ProgressEvent

	engine := executor.New(pool, store,
		executor.WithProgressCallback(func(e executor.ProgressEvent) {
			events = append(events, e)
		}),
	)

	require.NoError(t, engine.Upgrade(ctx, scope.Core, coreChain()))

	// 2 starting + 2 completed.
	require.Len(t, events, 4)
	assert.Equal(t, executor.StatusStarting, events[0].Status)
	assert.Equal(t, executor.StatusCompleted, events[1].Status)
	assert.Equal(t, executor.StatusStarting, events[2].Status)
	assert.Equal(t, executor.StatusCompleted, events[3].Status)
}

func TestUpgrade_concurrentIndexRevision_runsOutsideTransaction(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	store := tracker.New(pool, "schema_version")
	engine := executor.New(pool, store)

	chain := []revision.Revision{
		{
			ID:         "eee555eee555",
			Scope:      scope.Core,
			UpgradeOps: []string{"CREATE TABLE events (id BIGSERIAL PRIMARY KEY, kind TEXT)"},
		},
		{
			ID:         "fff666fff666",
			DownID:     "eee555eee555",
			Scope:      scope.Core,
			UpgradeOps: []string{"CREATE INDEX CONCURRENTLY idx_events_kind ON events (kind)"},
		},
	}

	require.NoError(t, engine.Upgrade(ctx, scope.Core, chain))

	current, err := store.Current(ctx, scope.Core)
	require.NoError(t, err)
	assert.Equal(t, "fff666fff666", current)
}
