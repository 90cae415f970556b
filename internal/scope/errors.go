package scope

import "errors"

// ErrOwnershipConflict indicates a table is claimed by two scopes without
// an extends_existing marker. Never resolved silently.
var ErrOwnershipConflict = errors.New("table ownership conflict")

// ErrInvalidScopeName indicates a scope identifier is not well-formed.
var ErrInvalidScopeName = errors.New("invalid scope name")

// ErrUnknownExtension indicates a named extension was never declared.
var ErrUnknownExtension = errors.New("unknown extension")

// ErrDependencyCycle indicates extension dependencies form a cycle.
var ErrDependencyCycle = errors.New("extension dependency cycle")

// ErrDependencyDisabled indicates an enabled extension depends on an
// extension that is not in the enabled set.
var ErrDependencyDisabled = errors.New("extension dependency not enabled")

// ErrDuplicateDeclaration indicates the same table was declared twice
// within a single scope.
var ErrDuplicateDeclaration = errors.New("duplicate table declaration")
