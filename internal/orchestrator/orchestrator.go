// Package orchestrator drives a merge request from webhook to posted review.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drewdunne/aireview/internal/analysis"
	"github.com/drewdunne/aireview/internal/dispatch"
	"github.com/drewdunne/aireview/internal/event"
	"github.com/drewdunne/aireview/internal/metrics"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/provider"
	"github.com/drewdunne/aireview/internal/report"
)

// Summaries stored on failed reviews.
const (
	NoDiffSummary         = "AI analysis failed: no diff information received from GitLab."
	AnalysisFailedSummary = "AI analysis failed. Please review manually."
)

var (
	// ErrMissingProject means the merge request has no GitLab project id.
	ErrMissingProject = errors.New("GitLab project id is missing")
	// ErrNoReview means the merge request has not been reviewed yet.
	ErrNoReview = errors.New("no review found for this MR")
	// ErrNoIssues means the current review has nothing to recommend.
	ErrNoIssues = errors.New("no issues to send")
	// ErrProvider wraps failures talking to GitLab on behalf of a request.
	ErrProvider = errors.New("provider request failed")
)

// Store is the persistence the orchestrator needs.
type Store interface {
	UpsertProject(ctx context.Context, p model.Project) (int64, bool, error)
	UpsertMergeRequest(ctx context.Context, mr model.MergeRequest) (int64, error)
	ReplaceReview(ctx context.Context, mrID int64, review model.Review, issues []model.Issue) (int64, error)
	GetMergeRequest(ctx context.Context, id int64) (*model.MergeRequest, error)
}

// Analyzer produces a review for a set of changes.
type Analyzer interface {
	Analyze(ctx context.Context, title, description string, changes *provider.Changes) (*analysis.Result, error)
}

// Dispatcher runs work in the background.
type Dispatcher interface {
	Go(name string, fn dispatch.Task)
}

// Config holds the orchestrator's settings.
type Config struct {
	// DashboardURL, when set, is linked from posted notes.
	DashboardURL string
}

// Orchestrator wires provider, engine and store together.
type Orchestrator struct {
	store      Store
	provider   provider.ChangeProvider
	engine     Analyzer
	dispatcher Dispatcher
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an Orchestrator.
func New(store Store, p provider.ChangeProvider, engine Analyzer, dispatcher Dispatcher, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:      store,
		provider:   p,
		engine:     engine,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleMergeRequestEvent schedules Ingest in the background. It matches
// webhook.MergeRequestHandler.
func (o *Orchestrator) HandleMergeRequestEvent(evt *event.MergeRequestEvent) {
	o.dispatcher.Go("ingest", func(ctx context.Context) error {
		return o.Ingest(ctx, evt)
	})
}

// Ingest records the project and merge request of an event, then analyses it.
// Events without a project id or merge-request iid are dropped.
func (o *Orchestrator) Ingest(ctx context.Context, evt *event.MergeRequestEvent) error {
	if evt.Project.ID == 0 {
		metrics.EventMalformed()
		o.logger.Debug("event dropped", "reason", "missing project id")
		return nil
	}

	projectID, _, err := o.store.UpsertProject(ctx, model.Project{
		GitLabID:          evt.Project.ID,
		Name:              evt.Project.Name,
		PathWithNamespace: evt.Project.PathWithNamespace,
		WebURL:            evt.Project.WebURL,
		AvatarURL:         evt.Project.AvatarURL,
		Description:       evt.Project.Description,
	})
	if err != nil {
		return err
	}

	meta := evt.MergeRequest
	if meta.IID == 0 {
		metrics.EventMalformed()
		o.logger.Debug("event dropped", "reason", "missing merge request iid", "project_id", evt.Project.ID)
		return nil
	}

	now := o.now()
	mr := model.MergeRequest{
		ProjectID:   projectID,
		IID:         meta.IID,
		Title:       meta.Title,
		Description: meta.Description,
		Author:      meta.Author,
		State:       meta.State,
		WebURL:      meta.URL,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}
	if mr.Author == "" {
		mr.Author = "Unknown"
	}
	if mr.CreatedAt.IsZero() {
		mr.CreatedAt = now
	}
	if mr.UpdatedAt.IsZero() {
		mr.UpdatedAt = now
	}

	mr.ID, err = o.store.UpsertMergeRequest(ctx, mr)
	if err != nil {
		return err
	}

	return o.RunAnalysis(ctx, evt.Project.ID, mr, false)
}

// RunAnalysis reviews an open merge request and reports back to GitLab.
// Merge requests in any other state are left untouched. Fetch and engine
// failures are recorded as a failed review and are not errors; store and
// GitLab write failures are returned.
func (o *Orchestrator) RunAnalysis(ctx context.Context, projectGitLabID int64, mr model.MergeRequest, isRerun bool) error {
	if mr.State != model.StateOpened {
		metrics.AnalysisSkippedState()
		o.logger.Debug("analysis skipped", "mr_id", mr.ID, "state", mr.State)
		return nil
	}

	metrics.AnalysisStarted()
	start := o.now()
	log := o.logger.With("project_id", projectGitLabID, "iid", mr.IID, "rerun", isRerun)

	changes, err := o.provider.FetchChanges(ctx, projectGitLabID, mr.IID)
	if err != nil || changes.Empty() {
		if err != nil {
			log.Warn("fetching changes failed", "error", err)
		}
		return o.storeFailed(ctx, mr.ID, NoDiffSummary, start)
	}

	result, err := o.engine.Analyze(ctx, mr.Title, mr.Description, changes)
	if err != nil {
		log.Warn("analysis failed", "error", err)
		return o.storeFailed(ctx, mr.ID, AnalysisFailedSummary, start)
	}

	issues := make([]model.Issue, len(result.Issues))
	for i, issue := range result.Issues {
		issue.SuggestedFix = model.EnsureFix(issue.SuggestedFix)
		issues[i] = issue
	}

	review := model.Review{
		Recommendation:   result.Recommendation,
		Confidence:       result.Confidence,
		Summary:          result.Summary,
		ProcessingTimeMs: o.now().Sub(start).Milliseconds(),
	}
	if _, err := o.store.ReplaceReview(ctx, mr.ID, review, issues); err != nil {
		return err
	}
	metrics.AnalysisCompleted()
	log.Info("review stored", "recommendation", review.Recommendation, "issues", len(issues))

	body := report.SummaryComment(review, isRerun, o.cfg.DashboardURL, mr.ProjectID)
	if err := o.provider.PostComment(ctx, projectGitLabID, mr.IID, body); err != nil {
		return fmt.Errorf("posting review comment: %w", err)
	}
	metrics.CommentPosted()

	label := model.LabelFor(review.Recommendation)
	if err := o.provider.UpdateAILabels(ctx, projectGitLabID, mr.IID, []string{label}); err != nil {
		return fmt.Errorf("updating labels: %w", err)
	}

	return nil
}

func (o *Orchestrator) storeFailed(ctx context.Context, mrID int64, summary string, start time.Time) error {
	metrics.AnalysisFailed()
	review := model.Review{
		Recommendation:   model.RecommendationFailed,
		Confidence:       0,
		Summary:          summary,
		ProcessingTimeMs: o.now().Sub(start).Milliseconds(),
	}
	_, err := o.store.ReplaceReview(ctx, mrID, review, nil)
	return err
}

// Rerun schedules a fresh analysis of a stored merge request. It returns
// store.ErrNotFound for an unknown id and ErrMissingProject when the
// project's GitLab id is unknown.
func (o *Orchestrator) Rerun(ctx context.Context, mrID int64) error {
	mr, err := o.store.GetMergeRequest(ctx, mrID)
	if err != nil {
		return err
	}
	if mr.ProjectGitLabID == 0 {
		return ErrMissingProject
	}

	snapshot := *mr
	snapshot.Review = nil
	o.dispatcher.Go("rerun", func(ctx context.Context) error {
		return o.RunAnalysis(ctx, snapshot.ProjectGitLabID, snapshot, true)
	})
	return nil
}
