package manager

import "errors"

// Sentinel errors for orchestration-level failures.
var (
	ErrUnsafeRevision    = errors.New("revision contains high-risk operations")
	ErrScopesFailed      = errors.New("one or more scopes failed")
	ErrExtensionDisabled = errors.New("extension is not enabled")
	ErrTargetRequired    = errors.New("downgrade requires an explicit target")
)
