package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

func TestScope_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, scope.Core.Valid())
	assert.True(t, scope.Scope("audit").Valid())
	assert.True(t, scope.Scope("ext_a2").Valid())
	assert.False(t, scope.Scope("").Valid())
	assert.False(t, scope.Scope("2fast").Valid())
	assert.False(t, scope.Scope("Audit").Valid())
	assert.False(t, scope.Scope("drop table").Valid())
}

func TestScope_VersionTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "schema_version_core", scope.Core.VersionTable("schema_version"))
	assert.Equal(t, "schema_version_audit", scope.Scope("audit").VersionTable("schema_version"))
}

func TestScope_BranchLabel(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scope.Core.BranchLabel())
	assert.Equal(t, "audit", scope.Scope("audit").BranchLabel())
}

func TestScope_LockID_distinctPerScope(t *testing.T) {
	t.Parallel()

	seen := map[int64]scope.Scope{}

	for _, s := range []scope.Scope{scope.Core, "audit", "billing", "ext_a", "ext_b"} {
		id := s.LockID()
		prev, dup := seen[id]
		assert.False(t, dup, "lock id collision between %s and %s", prev, s)
		seen[id] = s

		// Deterministic across calls.
		assert.Equal(t, id, s.LockID())
	}
}
