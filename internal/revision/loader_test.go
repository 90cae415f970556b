package revision_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/revision"
)

func newRevision(t *testing.T, down, label, message string, ops ...string) *revision.Revision {
	t.Helper()

	return &revision.Revision{
		ID:           revision.NewID(),
		DownID:       down,
		Scope:        "audit",
		BranchLabel:  label,
		Message:      message,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		UpgradeOps:   ops,
		DowngradeOps: []string{"DROP TABLE audit_log"},
		Checksum:     revision.ComputeChecksum(ops),
	}
}

func TestNewID(t *testing.T) {
	t.Parallel()

	a := revision.NewID()
	b := revision.NewID()

	assert.Len(t, a, 12)
	assert.Regexp(t, "^[0-9a-f]{12}$", a)
	assert.NotEqual(t, a, b)
}

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "create_audit_log", revision.Slug("Create Audit-Log"))
	assert.Equal(t, "add_col2", revision.Slug("  add col2! "))
	assert.Equal(t, "revision", revision.Slug("???"))
	assert.Equal(t, "revision", revision.Slug(""))
}

func TestMarshalUnmarshal_roundTrip(t *testing.T) {
	t.Parallel()

	orig := newRevision(t, "aaa111aaa111", "", "add audit index",
		"CREATE INDEX idx_audit_log_at ON audit_log (at)")

	data, err := revision.Marshal(orig)
	require.NoError(t, err)

	got, err := revision.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.DownID, got.DownID)
	assert.Equal(t, orig.Message, got.Message)
	assert.Equal(t, orig.UpgradeOps, got.UpgradeOps)
	assert.Equal(t, orig.DowngradeOps, got.DowngradeOps)
	assert.Equal(t, orig.Checksum, got.Checksum)
}

func TestUnmarshal_checksumMismatch(t *testing.T) {
	t.Parallel()

	r := newRevision(t, "", "audit", "create audit log", "CREATE TABLE audit_log (id bigint)")
	r.Checksum = revision.ComputeChecksum([]string{"something else"})

	data, err := revision.Marshal(r)
	require.NoError(t, err)

	_, err = revision.Unmarshal(data)
	assert.ErrorIs(t, err, revision.ErrChecksumMismatch)
}

func TestUnmarshal_missingID(t *testing.T) {
	t.Parallel()

	_, err := revision.Unmarshal([]byte("message: no id here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing revision id")
}

func TestWriteAndLoadScopeDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	first := newRevision(t, "", "audit", "create audit log", "CREATE TABLE audit_log (id bigint)")
	second := newRevision(t, first.ID, "", "add audit index",
		"CREATE INDEX idx_audit ON audit_log (id)")

	require.NoError(t, revision.Write(root, first))
	require.NoError(t, revision.Write(root, second))

	assert.FileExists(t, first.FilePath)
	assert.Equal(t, revision.ScopeDir(root, "audit"), filepath.Dir(first.FilePath))

	// Non-matching files are skipped.
	junk := filepath.Join(revision.ScopeDir(root, "audit"), "README.md")
	require.NoError(t, os.WriteFile(junk, []byte("# notes"), 0o600))

	loaded, err := revision.LoadScopeDir(root, "audit")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	g, err := revision.NewGraph("audit", loaded)
	require.NoError(t, err)
	assert.Equal(t, second.ID, g.Head().ID)
	assert.Equal(t, "audit", g.Revisions()[0].BranchLabel)
}

func TestLoadScopeDir_missingDirIsEmpty(t *testing.T) {
	t.Parallel()

	loaded, err := revision.LoadScopeDir(t.TempDir(), "billing")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadScopeDir_filenameIDMismatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r := newRevision(t, "", "audit", "create audit log", "CREATE TABLE audit_log (id bigint)")

	data, err := revision.Marshal(r)
	require.NoError(t, err)

	dir := revision.ScopeDir(root, "audit")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bbbbbbbbbbbb_renamed.yaml"), data, 0o600))

	_, err = revision.LoadScopeDir(root, "audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match revision id")
}

func TestRemoveAll(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r := newRevision(t, "", "audit", "create audit log", "CREATE TABLE audit_log (id bigint)")
	require.NoError(t, revision.Write(root, r))

	keep := filepath.Join(revision.ScopeDir(root, "audit"), "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep me"), 0o600))

	require.NoError(t, revision.RemoveAll(root, "audit"))

	loaded, err := revision.LoadScopeDir(root, "audit")
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.FileExists(t, keep)

	// Removing from a scope with no directory is a no-op.
	require.NoError(t, revision.RemoveAll(root, "billing"))
}
