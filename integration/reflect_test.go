//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/schema"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

func TestReflector_tablesAndColumns(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`CREATE TABLE accounts (
			id BIGINT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "CREATE TABLE invoices (id BIGINT NOT NULL)")
	require.NoError(t, err)

	reflector := schema.NewReflector(pool)

	tables, err := reflector.Tables(ctx, func(table string) bool { return table == "accounts" })
	require.NoError(t, err)
	require.Len(t, tables, 1, "excluded tables never surface")

	accounts := tables[0]
	assert.Equal(t, "accounts", accounts.Name)
	require.Len(t, accounts.Columns, 3)

	assert.Equal(t, "id", accounts.Columns[0].Name)
	assert.Equal(t, "bigint", schema.NormalizeType(accounts.Columns[0].Type))
	assert.True(t, accounts.Columns[0].NotNull)
	assert.False(t, accounts.Columns[2].NotNull)
	assert.NotEmpty(t, accounts.Columns[2].Default)
}

func TestReflector_compareAgainstDeclaredModel(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE accounts (id BIGINT NOT NULL)")
	require.NoError(t, err)

	declared := []scope.TableDeclaration{{
		Name:  "accounts",
		Scope: scope.Core,
		Columns: []scope.ColumnDeclaration{
			{Name: "id", Type: "bigint", NotNull: true},
			{Name: "email", Type: "text", NotNull: true},
		},
	}}

	reflector := schema.NewReflector(pool)

	live, err := reflector.Tables(ctx, func(table string) bool { return table == "accounts" })
	require.NoError(t, err)

	diff := schema.Compare(declared, live)
	require.False(t, diff.Empty())
	require.Len(t, diff.Upgrade, 1)
	assert.Contains(t, diff.Upgrade[0], "ADD COLUMN email")
	require.Len(t, diff.Downgrade, 1)
	assert.Contains(t, diff.Downgrade[0], "DROP COLUMN email")

	// Applying the upgrade converges the schemas.
	for _, op := range diff.Upgrade {
		_, err = pool.Exec(ctx, op)
		require.NoError(t, err)
	}

	live, err = reflector.Tables(ctx, func(table string) bool { return table == "accounts" })
	require.NoError(t, err)
	assert.True(t, schema.Compare(declared, live).Empty())
}
