package scope

import (
	"hash/fnv"
	"regexp"
)

// Scope identifies one independently-versioned migration domain:
// the core schema or a named extension.
type Scope string

// Core is the scope owning the base application schema.
const Core Scope = "core"

// namePattern restricts scope identifiers to names that can be embedded
// in tracking-table identifiers without quoting.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`) //nolint:gochecknoglobals // compiled once

// Valid reports whether the scope identifier is well-formed.
func (s Scope) Valid() bool {
	return namePattern.MatchString(string(s))
}

// IsCore reports whether the scope is the core schema.
func (s Scope) IsCore() bool {
	return s == Core
}

// VersionTable derives the scope's tracking-table name from the configured
// prefix. The derivation is deterministic so one scope's migrations can
// never touch another scope's recorded state.
func (s Scope) VersionTable(prefix string) string {
	return prefix + "_" + string(s)
}

// BranchLabel returns the one-time marker carried by the root revision of a
// non-core scope's chain. Core chains are unlabeled.
func (s Scope) BranchLabel() string {
	if s.IsCore() {
		return ""
	}

	return string(s)
}

// LockID derives the advisory-lock identifier for the scope. Distinct scopes
// get distinct ids so their migrations serialize independently.
func (s Scope) LockID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("scopemigrate/" + string(s)))

	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a lock key
}
