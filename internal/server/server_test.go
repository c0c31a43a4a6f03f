package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewdunne/aireview/internal/config"
	"github.com/drewdunne/aireview/internal/event"
	"github.com/drewdunne/aireview/internal/metrics"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/orchestrator"
	"github.com/drewdunne/aireview/internal/store"
)

type fakeReadStore struct {
	pingErr  error
	projects []model.ProjectStats
	mrs      []model.MergeRequest
	listedBy []int64
}

func (s *fakeReadStore) ListProjects(ctx context.Context) ([]model.ProjectStats, error) {
	return s.projects, nil
}

func (s *fakeReadStore) GetProject(ctx context.Context, id int64) (*model.ProjectStats, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeReadStore) ListMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error) {
	s.listedBy = append(s.listedBy, projectID)
	var out []model.MergeRequest
	for _, mr := range s.mrs {
		if projectID == 0 || mr.ProjectID == projectID {
			out = append(out, mr)
		}
	}
	return out, nil
}

func (s *fakeReadStore) GetMergeRequest(ctx context.Context, id int64) (*model.MergeRequest, error) {
	for _, mr := range s.mrs {
		if mr.ID == id {
			return &mr, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeReadStore) Ping(ctx context.Context) error { return s.pingErr }

type fakePipeline struct {
	mu       sync.Mutex
	events   []*event.MergeRequestEvent
	reruns   []int64
	sent     []int64
	err      error
	markdown string
	sync     orchestrator.SyncResult
	panicky  bool
}

func (p *fakePipeline) HandleMergeRequestEvent(evt *event.MergeRequestEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *fakePipeline) Rerun(ctx context.Context, mrID int64) error {
	if p.panicky {
		panic("boom")
	}
	if p.err != nil {
		return p.err
	}
	p.reruns = append(p.reruns, mrID)
	return nil
}

func (p *fakePipeline) SendRecommendations(ctx context.Context, mrID int64) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, mrID)
	return nil
}

func (p *fakePipeline) RecommendationsMarkdown(ctx context.Context, mrID int64) (string, *model.MergeRequest, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	return p.markdown, &model.MergeRequest{ID: mrID}, nil
}

func (p *fakePipeline) SyncProjects(ctx context.Context) (orchestrator.SyncResult, error) {
	if p.err != nil {
		return orchestrator.SyncResult{}, p.err
	}
	return p.sync, nil
}

type fakeDispatcher struct{ active int }

func (d *fakeDispatcher) Active() int { return d.active }
func (d *fakeDispatcher) Wait(ctx context.Context) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store    *fakeReadStore
	pipeline *fakePipeline
	srv      *Server
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store: &fakeReadStore{
			projects: []model.ProjectStats{{
				Project:         model.Project{ID: 1, GitLabID: 42, Name: "app", PathWithNamespace: "group/app"},
				MRCount:         2,
				OpenMRCount:     1,
				ReviewedMRCount: 1,
			}},
			mrs: []model.MergeRequest{
				{
					ID: 10, ProjectID: 1, ProjectGitLabID: 42, IID: 7, Title: "Add feature", State: "opened",
					Review: &model.Review{
						ID: 3, MergeRequestID: 10, Recommendation: model.RecommendationNeedsFixes, Confidence: 0.8,
						Issues: []model.Issue{{ID: 1, ReviewID: 3, FilePath: "main.go", Severity: model.SeverityError, Message: "nil deref"}},
					},
				},
				{ID: 11, ProjectID: 2, IID: 1, Title: "Other", State: "merged"},
			},
		},
		pipeline: &fakePipeline{},
	}
	env.srv = New(config.ServerConfig{Host: "127.0.0.1"}, Deps{
		Store:         env.store,
		Pipeline:      env.pipeline,
		Dispatcher:    &fakeDispatcher{active: 3},
		WebhookSecret: "secret",
		Logger:        quietLogger(),
	})
	return env
}

func (env *testEnv) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_HealthEndpoint(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])
	assert.EqualValues(t, 3, health.Checks["active_analyses"])
}

func TestServer_HealthEndpoint_DegradedStatus(t *testing.T) {
	env := newTestEnv()
	env.store.pingErr = errors.New("database is locked")

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "database is locked", health.Checks["database"])
}

func TestServer_MetricsEndpoint(t *testing.T) {
	metrics.Reset()
	metrics.CommentPosted()
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	m := decode[metrics.Metrics](t, rec)
	assert.Equal(t, uint64(1), m.CommentsPosted)
}

func TestServer_WebhookGitLabEndpoint(t *testing.T) {
	env := newTestEnv()

	body := `{"object_kind":"merge_request","project":{"id":42},"object_attributes":{"iid":7,"state":"opened"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", strings.NewReader(body))
	req.Header.Set("X-Gitlab-Token", "secret")
	req.Header.Set("X-Gitlab-Event", "Merge Request Hook")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processing_started", decode[map[string]string](t, rec)["status"])
	require.Len(t, env.pipeline.events, 1)
	assert.Equal(t, int64(42), env.pipeline.events[0].Project.ID)

	bad := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", strings.NewReader(body))
	bad.Header.Set("X-Gitlab-Token", "wrong")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, env.pipeline.events, 1)
}

func TestServer_ListProjects(t *testing.T) {
	env := newTestEnv()

	for _, path := range []string{"/api/projects", "/api/projects/"} {
		rec := env.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		projects := decode[[]map[string]any](t, rec)
		require.Len(t, projects, 1)
		assert.Equal(t, "group/app", projects[0]["path_with_namespace"])
		assert.EqualValues(t, 42, projects[0]["gitlab_id"])
		assert.EqualValues(t, 2, projects[0]["mrs_count"])
		assert.EqualValues(t, 1, projects[0]["open_mrs_count"])
		assert.EqualValues(t, 1, projects[0]["reviewed_mrs_count"])
	}
}

func TestServer_GetProject(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/projects/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "app", decode[map[string]any](t, rec)["name"])

	for _, path := range []string{"/api/projects/99", "/api/projects/abc"} {
		rec = env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Project not found", decode[errorResponse](t, rec).Detail)
	}
}

func TestServer_ProjectMergeRequests(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/projects/1/mrs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	mrs := decode[[]mergeRequestJSON](t, rec)
	require.Len(t, mrs, 1)
	assert.Equal(t, 7, mrs[0].IID)
	require.NotNil(t, mrs[0].LatestReview)
	assert.Equal(t, 1, mrs[0].LatestReview.IssuesFound)
	assert.Equal(t, "ERROR", mrs[0].LatestReview.Issues[0].Severity)
}

func TestServer_ListMergeRequests(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/mrs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]mergeRequestJSON](t, rec), 2)

	rec = env.do(http.MethodGet, "/api/mrs?project_id=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mrs := decode[[]mergeRequestJSON](t, rec)
	require.Len(t, mrs, 1)
	assert.Nil(t, mrs[0].LatestReview)

	rec = env.do(http.MethodGet, "/api/mrs?project_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []int64{0, 2}, env.store.listedBy)
}

func TestServer_ListMergeRequests_EmptyIsArray(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/mrs?project_id=77", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_GetMergeRequest(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/mrs/10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mr := decode[mergeRequestJSON](t, rec)
	assert.Equal(t, int64(42), mr.ProjectGitLabID)
	assert.Equal(t, "needs_fixes", mr.LatestReview.Recommendation)

	rec = env.do(http.MethodGet, "/api/mrs/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SyncProjects(t *testing.T) {
	env := newTestEnv()
	env.pipeline.sync = orchestrator.SyncResult{Created: 2, Updated: 1, Total: 3}

	rec := env.do(http.MethodPost, "/api/projects/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","created":2,"updated":1,"total":3}`, rec.Body.String())

	env.pipeline.err = fmt.Errorf("%w: listing projects: boom", orchestrator.ErrProvider)
	rec = env.do(http.MethodPost, "/api/projects/sync", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Rerun(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"started", "/api/mrs/10/rerun", nil, http.StatusOK, `{"status":"processing_started"}`},
		{"trailing slash", "/api/mrs/10/rerun/", nil, http.StatusOK, `{"status":"processing_started"}`},
		{"unknown", "/api/mrs/10/rerun", store.ErrNotFound, http.StatusNotFound, `{"detail":"MergeRequest not found"}`},
		{"bad id", "/api/mrs/abc/rerun", nil, http.StatusNotFound, `{"detail":"MergeRequest not found"}`},
		{"missing project", "/api/mrs/10/rerun", orchestrator.ErrMissingProject, http.StatusBadRequest, `{"detail":"GitLab project id is missing"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.pipeline.err = tt.err

			rec := env.do(http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, []int64{10}, env.pipeline.reruns)
			}
		})
	}
}

func TestServer_SendRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"sent", nil, http.StatusOK, `{"status":"comment_sent"}`},
		{"unknown", store.ErrNotFound, http.StatusNotFound, `{"detail":"MergeRequest not found"}`},
		{"no review", orchestrator.ErrNoReview, http.StatusBadRequest, `{"detail":"No review found for this MR"}`},
		{"no issues", orchestrator.ErrNoIssues, http.StatusBadRequest, `{"detail":"No issues to send"}`},
		{"provider down", fmt.Errorf("%w: posting: 503", orchestrator.ErrProvider), http.StatusBadGateway, `{"detail":"GitLab request failed"}`},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, `{"detail":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.pipeline.err = tt.err

			rec := env.do(http.MethodPost, "/api/mrs/10/recommendations", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			if tt.err == nil {
				assert.Equal(t, []int64{10}, env.pipeline.sent)
			}
		})
	}
}

func TestServer_PreviewRecommendations(t *testing.T) {
	env := newTestEnv()
	env.pipeline.markdown = "## AI Detailed Recommendations\n\n<script>alert(1)</script>"

	rec := env.do(http.MethodGet, "/api/mrs/10/recommendations/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h2")
	assert.NotContains(t, rec.Body.String(), "<script>")

	env.pipeline.err = orchestrator.ErrNoIssues
	rec = env.do(http.MethodGet, "/api/mrs/10/recommendations/preview", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	env := newTestEnv()
	env.pipeline.panicky = true

	rec := env.do(http.MethodPost, "/api/mrs/10/rerun", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/webhook/gitlab", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
