package model

import "strings"

// Severity of an issue.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityOrder lists severities from most to least severe.
var SeverityOrder = []Severity{SeverityCritical, SeverityError, SeverityWarning, SeverityInfo}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity normalises s, defaulting to SeverityInfo when unknown.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if SeverityRank(sev) == 0 {
		return SeverityInfo
	}
	return sev
}
