package revision

import "errors"

// ErrUnreachableRevision indicates the requested target is not reachable
// from the current recorded state along the scope's chain.
var ErrUnreachableRevision = errors.New("target revision not reachable from current state")

// ErrUnknownRevision indicates a revision id that does not exist in the
// scope's chain.
var ErrUnknownRevision = errors.New("unknown revision")

// ErrBrokenChain indicates a scope's revisions do not form a single linear
// chain (missing parent, multiple roots, or disjoint segments).
var ErrBrokenChain = errors.New("revision chain is not a single linear history")

// ErrBranchedChain indicates a revision has more than one child.
var ErrBranchedChain = errors.New("revision chain has an unresolved branch point")

// ErrBranchLabel indicates a branch label on a non-root revision or a
// missing label on an extension scope's root.
var ErrBranchLabel = errors.New("branch label misplaced")

// ErrChecksumMismatch indicates a revision artifact was modified after
// generation.
var ErrChecksumMismatch = errors.New("revision checksum mismatch")
