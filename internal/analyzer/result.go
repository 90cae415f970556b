package analyzer

import "github.com/daveohlh/scopemigrate/internal/revision"

// Finding represents a single dangerous pattern detected in a revision's
// upgrade operations.
type Finding struct {
	Rule       string   // Rule ID (e.g., "create-index-not-concurrent")
	Severity   Severity // Danger level
	Table      string   // Affected table name
	Message    string   // Human-readable description of the danger
	Suggestion string   // Safe alternative approach
	OpIndex    int      // Index in the revision's upgrade ops (0-based)
}

// Result holds all findings for a single revision.
type Result struct {
	Revision    *revision.Revision
	Findings    []Finding
	MaxSeverity Severity
}

// HasHighOrCritical reports whether any finding is High or Critical.
func (r *Result) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}
