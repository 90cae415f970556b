package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daveohlh/scopemigrate/internal/tracker"
)

func TestNew_returnsNonNil(t *testing.T) {
	t.Parallel()

	// nil pool is accepted at construction time; errors surface on use.
	s := tracker.New(nil, "schema_version")
	assert.NotNil(t, s)
}

func TestTableName_derivedPerScope(t *testing.T) {
	t.Parallel()

	s := tracker.New(nil, "schema_version")

	assert.Equal(t, "schema_version_core", s.TableName("core"))
	assert.Equal(t, "schema_version_audit", s.TableName("audit"))
	assert.NotEqual(t, s.TableName("audit"), s.TableName("billing"))
}
