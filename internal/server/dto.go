package server

import (
	"time"

	"github.com/drewdunne/aireview/internal/model"
)

type projectJSON struct {
	ID                int64     `json:"id"`
	GitLabID          int64     `json:"gitlab_id"`
	Name              string    `json:"name"`
	PathWithNamespace string    `json:"path_with_namespace"`
	WebURL            string    `json:"web_url"`
	AvatarURL         string    `json:"avatar_url"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"created_at"`
	LastSyncedAt      time.Time `json:"last_synced_at"`
	MRsCount          int       `json:"mrs_count"`
	OpenMRsCount      int       `json:"open_mrs_count"`
	ReviewedMRsCount  int       `json:"reviewed_mrs_count"`
}

type mergeRequestJSON struct {
	ID              int64       `json:"id"`
	ProjectID       int64       `json:"project_id"`
	ProjectGitLabID int64       `json:"project_gitlab_id"`
	IID             int         `json:"mr_iid"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Author          string      `json:"author"`
	State           string      `json:"state"`
	WebURL          string      `json:"web_url"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LatestReview    *reviewJSON `json:"latest_review"`
}

type reviewJSON struct {
	ID               int64       `json:"id"`
	MergeRequestID   int64       `json:"merge_request"`
	Recommendation   string      `json:"recommendation"`
	Confidence       float64     `json:"confidence"`
	Summary          string      `json:"summary_text"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	CreatedAt        time.Time   `json:"created_at"`
	IssuesFound      int         `json:"issues_found_count"`
	Issues           []issueJSON `json:"issues"`
}

type issueJSON struct {
	ID           int64  `json:"id"`
	ReviewID     int64  `json:"review"`
	FilePath     string `json:"file_path"`
	Line         *int   `json:"line_number"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix"`
	Rule         string `json:"rule"`
}

func toProjectJSON(p model.ProjectStats) projectJSON {
	return projectJSON{
		ID:                p.ID,
		GitLabID:          p.GitLabID,
		Name:              p.Name,
		PathWithNamespace: p.PathWithNamespace,
		WebURL:            p.WebURL,
		AvatarURL:         p.AvatarURL,
		Description:       p.Description,
		CreatedAt:         p.CreatedAt,
		LastSyncedAt:      p.LastSyncedAt,
		MRsCount:          p.MRCount,
		OpenMRsCount:      p.OpenMRCount,
		ReviewedMRsCount:  p.ReviewedMRCount,
	}
}

func toMergeRequestJSON(mr model.MergeRequest) mergeRequestJSON {
	out := mergeRequestJSON{
		ID:              mr.ID,
		ProjectID:       mr.ProjectID,
		ProjectGitLabID: mr.ProjectGitLabID,
		IID:             mr.IID,
		Title:           mr.Title,
		Description:     mr.Description,
		Author:          mr.Author,
		State:           mr.State,
		WebURL:          mr.WebURL,
		CreatedAt:       mr.CreatedAt,
		UpdatedAt:       mr.UpdatedAt,
	}
	if mr.Review != nil {
		rv := toReviewJSON(*mr.Review)
		out.LatestReview = &rv
	}
	return out
}

func toReviewJSON(r model.Review) reviewJSON {
	issues := make([]issueJSON, 0, len(r.Issues))
	for _, is := range r.Issues {
		issues = append(issues, issueJSON{
			ID:           is.ID,
			ReviewID:     is.ReviewID,
			FilePath:     is.FilePath,
			Line:         is.Line,
			Severity:     string(is.Severity),
			Message:      is.Message,
			SuggestedFix: is.SuggestedFix,
			Rule:         is.Rule,
		})
	}
	return reviewJSON{
		ID:               r.ID,
		MergeRequestID:   r.MergeRequestID,
		Recommendation:   string(r.Recommendation),
		Confidence:       r.Confidence,
		Summary:          r.Summary,
		ProcessingTimeMs: r.ProcessingTimeMs,
		CreatedAt:        r.CreatedAt,
		IssuesFound:      len(issues),
		Issues:           issues,
	}
}
