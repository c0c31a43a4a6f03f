package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewdunne/aireview/internal/model"
)

func intPtr(i int) *int { return &i }

func TestSummaryComment(t *testing.T) {
	review := model.Review{
		Recommendation: model.RecommendationNeedsFixes,
		Confidence:     0.874,
		Summary:        "Two problems found.",
	}

	got := SummaryComment(review, false, "", 3)
	assert.Equal(t, "## AI Code Review\n\n**Recommendation:** `needs_fixes` (confidence: 87%)\n\nTwo problems found.", got)
}

func TestSummaryComment_RerunWithDashboard(t *testing.T) {
	review := model.Review{Recommendation: model.RecommendationMerge, Confidence: 1, Summary: "LGTM"}

	got := SummaryComment(review, true, "https://review.example.com/", 3)

	assert.True(t, strings.HasPrefix(got, "## AI Code Review (re-run)\n\n"))
	assert.Contains(t, got, "(confidence: 100%)")
	assert.True(t, strings.HasSuffix(got, "LGTM\n\n---\n[Open in AI Code Review Dashboard](https://review.example.com/projects/3)"))
}

func TestDetailedRecommendations_SeverityOrderAndCounts(t *testing.T) {
	review := model.Review{Recommendation: model.RecommendationReject, Confidence: 0.9, Summary: "Unsafe."}
	issues := []model.Issue{
		{FilePath: "a.go", Line: intPtr(1), Severity: model.SeverityInfo, Message: "info one", SuggestedFix: "fix 1"},
		{FilePath: "db.go", Line: intPtr(42), Severity: model.SeverityCritical, Message: "sql injection", SuggestedFix: "use params", Rule: "sec-01"},
		{FilePath: "b.go", Severity: model.SeverityInfo, Message: "info two", SuggestedFix: "fix 2"},
	}

	got := DetailedRecommendations(review, issues, "", 1)

	critical := strings.Index(got, "#### CRITICAL (1)")
	info := strings.Index(got, "#### INFO (2)")
	require.NotEqual(t, -1, critical, "missing CRITICAL section:\n%s", got)
	require.NotEqual(t, -1, info, "missing INFO section:\n%s", got)
	assert.Less(t, critical, info)

	assert.NotContains(t, got, "#### ERROR")
	assert.NotContains(t, got, "#### WARNING")
	assert.Contains(t, got, "- **Location:** 1. `db.go:42`")
	assert.Contains(t, got, "- **Location:** 2. `b.go:0`")
	assert.Contains(t, got, "  - **Rule:** `sec-01`")
	assert.Contains(t, got, "  - **Suggestion:**\n    ```\nuse params\n    ```")
	assert.Contains(t, got, "**Overall recommendation:** `reject` (confidence: 90%)")
	assert.NotContains(t, got, "Dashboard")
}

func TestDetailedRecommendations_DashboardLink(t *testing.T) {
	review := model.Review{Recommendation: model.RecommendationMerge}
	issues := []model.Issue{{FilePath: "a.go", Severity: model.SeverityWarning, Message: "m", SuggestedFix: "f"}}

	got := DetailedRecommendations(review, issues, "https://review.example.com", 9)

	assert.True(t, strings.HasSuffix(got, "---\n[Open this MR in AI Code Review Dashboard](https://review.example.com/projects/9)"))
}

func TestRenderHTML(t *testing.T) {
	assert.Equal(t, "", RenderHTML(""))

	got := RenderHTML("## Title\n\n**bold** `code`\n\n<script>alert(1)</script>")
	assert.Contains(t, got, "<h2")
	assert.Contains(t, got, "<strong>bold</strong>")
	assert.Contains(t, got, "<code>code</code>")
	assert.NotContains(t, got, "<script>")
}
