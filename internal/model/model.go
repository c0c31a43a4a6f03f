// Package model defines the entities persisted by the review pipeline.
package model

import "time"

// Project is a GitLab project whose merge requests are reviewed.
type Project struct {
	ID                int64
	GitLabID          int64
	Name              string
	PathWithNamespace string
	WebURL            string
	AvatarURL         string
	Description       string
	CreatedAt         time.Time
	LastSyncedAt      time.Time
}

// ProjectStats is a Project annotated with merge request counters.
type ProjectStats struct {
	Project
	MRCount         int
	OpenMRCount     int
	ReviewedMRCount int
}

// MergeRequest is identified by (ProjectID, IID).
type MergeRequest struct {
	ID          int64
	ProjectID   int64
	IID         int
	Title       string
	Description string
	Author      string
	State       string // opened, closed, merged, locked
	WebURL      string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Populated on reads only.
	ProjectGitLabID int64
	Review          *Review
}

// StateOpened is the only merge request state that gets analysed.
const StateOpened = "opened"

// Review is the current AI verdict for a merge request. There is at most one
// per merge request; a new review replaces the previous one and its issues.
type Review struct {
	ID               int64
	MergeRequestID   int64
	Recommendation   Recommendation
	Confidence       float64
	Summary          string
	ProcessingTimeMs int64
	CreatedAt        time.Time
	Issues           []Issue
}

// Issue is a single finding attached to a review.
type Issue struct {
	ID           int64
	ReviewID     int64
	FilePath     string
	Line         *int
	Severity     Severity
	Message      string
	SuggestedFix string
	Rule         string
}

// NoFixPlaceholder replaces an empty suggested fix.
const NoFixPlaceholder = "No concrete fix suggested by AI. Please review this issue manually."

// EnsureFix returns fix, or NoFixPlaceholder when fix is blank.
func EnsureFix(fix string) string {
	if isBlank(fix) {
		return NoFixPlaceholder
	}
	return fix
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
