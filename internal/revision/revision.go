package revision

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// idLength is the number of hex characters kept from a generated UUID.
const idLength = 12

// Revision is one atomic, ordered schema-change unit in a scope's chain.
type Revision struct {
	ID           string
	DownID       string // empty for the scope root
	Scope        scope.Scope
	BranchLabel  string // present only on a non-core scope's root
	Message      string
	CreatedAt    time.Time
	UpgradeOps   []string
	DowngradeOps []string
	Checksum     string // SHA-256 hex digest of the upgrade ops
	FilePath     string // artifact path, empty until persisted
}

// IsRoot reports whether the revision is the first of its scope's chain.
func (r *Revision) IsRoot() bool {
	return r.DownID == ""
}

// NewID returns a fresh revision identifier: the first 12 hex characters
// of a v4 UUID.
func NewID() string {
	raw := uuid.New()

	return hex.EncodeToString(raw[:])[:idLength]
}

// ComputeChecksum returns the SHA-256 hex digest of the given ops joined
// with newlines.
func ComputeChecksum(ops []string) string {
	h := sha256.Sum256([]byte(strings.Join(ops, "\n")))

	return hex.EncodeToString(h[:])
}
