package orchestrator

import (
	"context"
	"fmt"

	"github.com/drewdunne/aireview/internal/metrics"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/report"
)

// RecommendationsMarkdown renders the detailed recommendations of a merge
// request's current review.
func (o *Orchestrator) RecommendationsMarkdown(ctx context.Context, mrID int64) (string, *model.MergeRequest, error) {
	mr, err := o.store.GetMergeRequest(ctx, mrID)
	if err != nil {
		return "", nil, err
	}
	if mr.Review == nil {
		return "", nil, ErrNoReview
	}
	if len(mr.Review.Issues) == 0 {
		return "", nil, ErrNoIssues
	}

	md := report.DetailedRecommendations(*mr.Review, mr.Review.Issues, o.cfg.DashboardURL, mr.ProjectID)
	return md, mr, nil
}

// SendRecommendations posts the detailed recommendations as a note on the
// merge request. GitLab failures wrap ErrProvider.
func (o *Orchestrator) SendRecommendations(ctx context.Context, mrID int64) error {
	md, mr, err := o.RecommendationsMarkdown(ctx, mrID)
	if err != nil {
		return err
	}
	if mr.ProjectGitLabID == 0 {
		return ErrMissingProject
	}

	if err := o.provider.PostComment(ctx, mr.ProjectGitLabID, mr.IID, md); err != nil {
		return fmt.Errorf("%w: posting recommendations: %w", ErrProvider, err)
	}
	metrics.CommentPosted()

	o.logger.Info("recommendations sent", "mr_id", mr.ID, "issues", len(mr.Review.Issues))
	return nil
}
