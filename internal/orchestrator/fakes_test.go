package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/drewdunne/aireview/internal/analysis"
	"github.com/drewdunne/aireview/internal/dispatch"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/provider"
	"github.com/drewdunne/aireview/internal/store"
)

type storedReview struct {
	review model.Review
	issues []model.Issue
}

type fakeStore struct {
	mu       sync.Mutex
	projects map[int64]model.Project // by GitLab id
	mrs      map[int64]model.MergeRequest
	reviews  map[int64]storedReview // by MR id
	replaced int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[int64]model.Project),
		mrs:      make(map[int64]model.MergeRequest),
		reviews:  make(map[int64]storedReview),
	}
}

func (s *fakeStore) UpsertProject(ctx context.Context, p model.Project) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[p.GitLabID]
	if ok {
		p.ID = existing.ID
	} else {
		p.ID = int64(len(s.projects) + 1)
	}
	s.projects[p.GitLabID] = p
	return p.ID, !ok, nil
}

func (s *fakeStore) UpsertMergeRequest(ctx context.Context, mr model.MergeRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.mrs {
		if existing.ProjectID == mr.ProjectID && existing.IID == mr.IID {
			mr.ID = id
			s.mrs[id] = mr
			return id, nil
		}
	}
	mr.ID = int64(len(s.mrs) + 100)
	s.mrs[mr.ID] = mr
	return mr.ID, nil
}

func (s *fakeStore) ReplaceReview(ctx context.Context, mrID int64, review model.Review, issues []model.Issue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced++
	review.ID = int64(s.replaced)
	review.MergeRequestID = mrID
	s.reviews[mrID] = storedReview{review: review, issues: issues}
	return review.ID, nil
}

func (s *fakeStore) GetMergeRequest(ctx context.Context, id int64) (*model.MergeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mr, ok := s.mrs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range s.projects {
		if p.ID == mr.ProjectID {
			mr.ProjectGitLabID = p.GitLabID
		}
	}
	if r, ok := s.reviews[id]; ok {
		review := r.review
		review.Issues = r.issues
		mr.Review = &review
	}
	return &mr, nil
}

func (s *fakeStore) review(mrID int64) (storedReview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[mrID]
	return r, ok
}

type labelCall struct {
	projectID int64
	iid       int
	labels    []string
}

type fakeProvider struct {
	mu         sync.Mutex
	changes    *provider.Changes
	fetchErr   error
	commentErr error
	labelErr   error
	projects   []provider.Project
	comments   []string
	labelCalls []labelCall
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchChanges(ctx context.Context, projectID int64, iid int) (*provider.Changes, error) {
	return p.changes, p.fetchErr
}

func (p *fakeProvider) FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*provider.MergeRequest, error) {
	return &provider.MergeRequest{IID: iid}, nil
}

func (p *fakeProvider) PostComment(ctx context.Context, projectID int64, iid int, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.commentErr != nil {
		return p.commentErr
	}
	p.comments = append(p.comments, body)
	return nil
}

func (p *fakeProvider) UpdateAILabels(ctx context.Context, projectID int64, iid int, labels []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.labelErr != nil {
		return p.labelErr
	}
	p.labelCalls = append(p.labelCalls, labelCall{projectID, iid, labels})
	return nil
}

func (p *fakeProvider) ListProjects(ctx context.Context) ([]provider.Project, error) {
	return p.projects, nil
}

type fakeEngine struct {
	result *analysis.Result
	err    error
	calls  int
}

func (e *fakeEngine) Analyze(ctx context.Context, title, description string, changes *provider.Changes) (*analysis.Result, error) {
	e.calls++
	return e.result, e.err
}

// inlineDispatcher runs tasks synchronously and keeps their errors.
type inlineDispatcher struct {
	errs []error
}

func (d *inlineDispatcher) Go(name string, fn dispatch.Task) {
	if err := fn(context.Background()); err != nil {
		d.errs = append(d.errs, err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
