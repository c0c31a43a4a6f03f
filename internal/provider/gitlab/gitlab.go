package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/drewdunne/aireview/internal/provider"
	"github.com/gregjones/httpcache"
	"github.com/xanzy/go-gitlab"
)

// Ensure GitLabProvider implements provider.ChangeProvider.
var _ provider.ChangeProvider = (*GitLabProvider)(nil)

const defaultBaseURL = "https://gitlab.com"

// GitLabProvider implements provider.ChangeProvider for GitLab.
type GitLabProvider struct {
	client     *gitlab.Client
	token      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	cacheBytes int64
	cache      *lruCache
}

// Option configures the GitLab provider.
type Option func(*GitLabProvider)

// WithBaseURL sets the GitLab instance URL (self-managed instances, tests).
func WithBaseURL(baseURL string) Option {
	return func(p *GitLabProvider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default caching HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *GitLabProvider) {
		p.httpClient = c
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(p *GitLabProvider) {
		p.timeout = d
	}
}

// WithCacheSize bounds the response cache of the default HTTP client.
// A non-positive size uses DefaultCacheBytes.
func WithCacheSize(maxBytes int64) Option {
	return func(p *GitLabProvider) {
		p.cacheBytes = maxBytes
	}
}

// New creates a new GitLab provider. Unless WithHTTPClient is given,
// requests go through a size-bounded in-memory HTTP cache so repeated
// reads revalidate with ETags.
func New(token string, opts ...Option) (*GitLabProvider, error) {
	p := &GitLabProvider{
		token:   token,
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		p.cache = newLRUCache(p.cacheBytes)
		p.httpClient = &http.Client{
			Transport: httpcache.NewTransport(p.cache),
			Timeout:   p.timeout,
		}
	}

	client, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(p.baseURL+"/api/v4"),
		gitlab.WithHTTPClient(p.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	p.client = client

	return p, nil
}

// Name returns the provider name.
func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// FetchChanges returns the file diffs of a merge request.
func (p *GitLabProvider) FetchChanges(ctx context.Context, projectID int64, iid int) (*provider.Changes, error) {
	mr, _, err := p.client.MergeRequests.GetMergeRequestChanges(int(projectID), iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching merge request changes: %w", err)
	}

	result := &provider.Changes{Files: make([]provider.FileDiff, 0, len(mr.Changes))}
	for _, c := range mr.Changes {
		if c == nil {
			continue
		}
		result.Files = append(result.Files, provider.FileDiff{
			OldPath:     c.OldPath,
			NewPath:     c.NewPath,
			Diff:        c.Diff,
			NewFile:     c.NewFile,
			RenamedFile: c.RenamedFile,
			DeletedFile: c.DeletedFile,
		})
	}
	return result, nil
}

// FetchMergeRequest fetches a merge request by IID.
func (p *GitLabProvider) FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*provider.MergeRequest, error) {
	mr, _, err := p.client.MergeRequests.GetMergeRequest(int(projectID), iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching merge request: %w", err)
	}

	result := &provider.MergeRequest{
		ID:          mr.ID,
		IID:         mr.IID,
		Title:       mr.Title,
		Description: mr.Description,
		State:       mr.State,
		URL:         mr.WebURL,
		Labels:      append([]string(nil), mr.Labels...),
	}

	if mr.Author != nil {
		result.Author = mr.Author.Name
	}
	if mr.CreatedAt != nil {
		result.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		result.UpdatedAt = *mr.UpdatedAt
	}

	return result, nil
}

// PostComment posts a note on a merge request.
func (p *GitLabProvider) PostComment(ctx context.Context, projectID int64, iid int, body string) error {
	_, _, err := p.client.Notes.CreateMergeRequestNote(int(projectID), iid, &gitlab.CreateMergeRequestNoteOptions{
		Body: &body,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	return nil
}

// UpdateAILabels reads the current labels, swaps the AI-owned ones for
// labels and writes the full set back.
func (p *GitLabProvider) UpdateAILabels(ctx context.Context, projectID int64, iid int, labels []string) error {
	mr, err := p.FetchMergeRequest(ctx, projectID, iid)
	if err != nil {
		return fmt.Errorf("reading labels: %w", err)
	}

	merged := gitlab.LabelOptions(provider.MergeLabels(mr.Labels, labels))
	_, _, err = p.client.MergeRequests.UpdateMergeRequest(int(projectID), iid, &gitlab.UpdateMergeRequestOptions{
		Labels: &merged,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("updating labels: %w", err)
	}
	return nil
}

// ListProjects returns every project the token is a member of.
func (p *GitLabProvider) ListProjects(ctx context.Context) ([]provider.Project, error) {
	opts := &gitlab.ListProjectsOptions{
		Membership: gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			PerPage: 100,
			Page:    1,
		},
	}

	var result []provider.Project
	for {
		projects, resp, err := p.client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}

		for _, project := range projects {
			result = append(result, provider.Project{
				ID:                int64(project.ID),
				Name:              project.Name,
				PathWithNamespace: project.PathWithNamespace,
				WebURL:            project.WebURL,
				AvatarURL:         project.AvatarURL,
				Description:       project.Description,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}
