// Package event normalises GitLab merge-request webhook payloads.
package event

import "time"

// MergeRequestHook is the X-Gitlab-Event value of merge-request events.
const MergeRequestHook = "Merge Request Hook"

// ProjectMeta is the project block of a merge-request event. ID is zero
// when the payload carries no project id.
type ProjectMeta struct {
	ID                int64
	Name              string
	PathWithNamespace string
	WebURL            string
	AvatarURL         string
	Description       string
}

// MergeRequestMeta is the object_attributes block of a merge-request event.
// IID is zero when absent. Timestamps are zero when absent or unparseable.
type MergeRequestMeta struct {
	IID         int
	Title       string
	Description string
	State       string
	URL         string
	Author      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MergeRequestEvent is a normalised merge-request webhook.
type MergeRequestEvent struct {
	Project      ProjectMeta
	MergeRequest MergeRequestMeta
}
