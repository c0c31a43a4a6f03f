package provider

import "context"

// ChangeProvider is the source-control side of the review pipeline: it reads
// merge request diffs and metadata and writes comments and labels back.
type ChangeProvider interface {
	// Name returns the provider name (gitlab).
	Name() string

	// FetchChanges returns the file diffs of a merge request.
	FetchChanges(ctx context.Context, projectID int64, iid int) (*Changes, error)

	// FetchMergeRequest fetches the current state of a merge request, including labels.
	FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*MergeRequest, error)

	// PostComment posts a comment on a merge request.
	PostComment(ctx context.Context, projectID int64, iid int, body string) error

	// UpdateAILabels replaces the AI-owned labels on a merge request with
	// labels, keeping every other label already present.
	UpdateAILabels(ctx context.Context, projectID int64, iid int, labels []string) error

	// ListProjects returns the projects visible to the configured token.
	ListProjects(ctx context.Context) ([]Project, error)
}
