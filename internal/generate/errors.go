package generate

import "errors"

// Sentinel errors for revision generation.
var (
	ErrNoChanges    = errors.New("no schema changes detected")
	ErrEmptyMessage = errors.New("revision message must not be empty")
)
