package tracker

import "errors"

// ErrNoVersion indicates no revision has been recorded for the scope:
// either the scope was never migrated or it was fully downgraded.
var ErrNoVersion = errors.New("no version recorded for scope")

// ErrTableCreation indicates the scope's tracking table could not be created.
var ErrTableCreation = errors.New("creating version tracking table")
