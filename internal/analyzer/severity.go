package analyzer

// Severity represents the danger level of a finding.
type Severity int

const (
	// Safe indicates no danger detected.
	Safe Severity = iota
	// Low indicates a minor concern.
	Low
	// Medium indicates moderate risk with workarounds available.
	Medium
	// High indicates significant risk — table lock or rewrite likely.
	High
	// Critical indicates data loss or extended downtime guaranteed.
	Critical
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}
