// Package report renders reviews as GitLab markdown notes.
package report

import (
	"fmt"
	"strings"

	"github.com/drewdunne/aireview/internal/model"
)

// SummaryComment is the note posted after every successful analysis.
// dashboardURL may be empty, in which case no link is appended.
func SummaryComment(review model.Review, isRerun bool, dashboardURL string, projectID int64) string {
	header := "## AI Code Review\n\n"
	if isRerun {
		header = "## AI Code Review (re-run)\n\n"
	}

	var sb strings.Builder
	sb.WriteString(header)
	fmt.Fprintf(&sb, "**Recommendation:** `%s` (confidence: %s%%)\n\n", review.Recommendation, percent(review.Confidence))
	sb.WriteString(review.Summary)

	if link := dashboardLink(dashboardURL, projectID); link != "" {
		fmt.Fprintf(&sb, "\n\n---\n[Open in AI Code Review Dashboard](%s)", link)
	}
	return sb.String()
}

// DetailedRecommendations lists every issue grouped by severity, most
// severe group first. Issues with an unknown severity are left out.
func DetailedRecommendations(review model.Review, issues []model.Issue, dashboardURL string, projectID int64) string {
	var lines []string
	lines = append(lines, "## AI Detailed Recommendations\n")
	lines = append(lines, fmt.Sprintf("**Overall recommendation:** `%s` (confidence: %s%%)\n",
		review.Recommendation, percent(review.Confidence)))
	if review.Summary != "" {
		lines = append(lines, review.Summary)
	}
	lines = append(lines, "\n---\n")
	lines = append(lines, "### Issues by severity\n")

	bySeverity := make(map[model.Severity][]model.Issue, len(model.SeverityOrder))
	for _, issue := range issues {
		bySeverity[issue.Severity] = append(bySeverity[issue.Severity], issue)
	}

	for _, sev := range model.SeverityOrder {
		group := bySeverity[sev]
		if len(group) == 0 {
			continue
		}

		lines = append(lines, fmt.Sprintf("\n#### %s (%d)\n", sev, len(group)))
		for i, issue := range group {
			line := 0
			if issue.Line != nil {
				line = *issue.Line
			}
			lines = append(lines, fmt.Sprintf("- **Location:** %d. `%s:%d`", i+1, issue.FilePath, line))
			lines = append(lines, "  - **Problem:** "+issue.Message)

			if issue.SuggestedFix != "" {
				lines = append(lines, "  - **Suggestion:**", "    ```", issue.SuggestedFix, "    ```")
			}
			if issue.Rule != "" {
				lines = append(lines, fmt.Sprintf("  - **Rule:** `%s`", issue.Rule))
			}
			lines = append(lines, "")
		}
	}

	if link := dashboardLink(dashboardURL, projectID); link != "" {
		lines = append(lines, "---", fmt.Sprintf("[Open this MR in AI Code Review Dashboard](%s)", link))
	}

	return strings.Join(lines, "\n")
}

func percent(confidence float64) string {
	return fmt.Sprintf("%.0f", confidence*100)
}

func dashboardLink(base string, projectID int64) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/projects/%d", base, projectID)
}
