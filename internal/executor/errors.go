package executor

import "errors"

// ErrNoDowngradeOps indicates a revision cannot be reverted because it
// carries no downgrade operations.
var ErrNoDowngradeOps = errors.New("revision has no downgrade operations")
