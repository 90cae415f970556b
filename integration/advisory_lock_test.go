//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/database"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

func TestScopeLock_acquireAndRelease(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	handle, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)
	require.NotNil(t, handle)

	err = handle.Release(ctx)
	require.NoError(t, err)
}

func TestScopeLock_doubleAcquire_returnsLockNotAcquired(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	handle1, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)
	require.NotNil(t, handle1)

	t.Cleanup(func() {
		_ = handle1.Release(context.Background())
	})

	handle2, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	assert.Nil(t, handle2)
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
}

func TestScopeLock_distinctScopesDoNotBlock(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	coreHandle, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = coreHandle.Release(context.Background())
	})

	// Holding core's lock must not block an extension's migration.
	billingHandle, err := database.TryAcquireScopeLock(ctx, pool, scope.Scope("billing"))
	require.NoError(t, err)
	require.NotNil(t, billingHandle)
	require.NoError(t, billingHandle.Release(ctx))
}

func TestScopeLock_releaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	handle1, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)
	require.NoError(t, handle1.Release(ctx))

	handle2, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)
	require.NotNil(t, handle2)
	require.NoError(t, handle2.Release(ctx))
}

func TestLockHandle_Release_idempotent(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	handle, err := database.TryAcquireScopeLock(ctx, pool, scope.Core)
	require.NoError(t, err)

	require.NoError(t, handle.Release(ctx))
	require.NoError(t, handle.Release(ctx))
}

func TestLockHandle_Release_nilHandle_noError(t *testing.T) {
	t.Parallel()

	var handle *database.LockHandle

	err := handle.Release(context.Background())
	require.NoError(t, err)
}
