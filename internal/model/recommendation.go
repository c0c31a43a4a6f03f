package model

// Recommendation is the verdict of a review.
type Recommendation string

const (
	RecommendationMerge      Recommendation = "merge"
	RecommendationNeedsFixes Recommendation = "needs_fixes"
	RecommendationReject     Recommendation = "reject"
	RecommendationPending    Recommendation = "pending"
	RecommendationFailed     Recommendation = "failed"
)

// AI-owned labels on the GitLab side.
const (
	LabelReadyForMerge    = "ready-for-merge"
	LabelNeedsReview      = "needs-review"
	LabelChangesRequested = "changes-requested"
	LabelRejectedByAI     = "rejected-by-ai"
)

// AILabels is the label vocabulary owned by this service. Label updates only
// ever replace members of this set.
var AILabels = []string{
	LabelReadyForMerge,
	LabelNeedsReview,
	LabelChangesRequested,
	LabelRejectedByAI,
}

// IsAILabel reports whether label belongs to AILabels.
func IsAILabel(label string) bool {
	for _, l := range AILabels {
		if l == label {
			return true
		}
	}
	return false
}

// LabelFor maps a recommendation to exactly one AI label. Unknown values map
// to LabelNeedsReview.
func LabelFor(r Recommendation) string {
	switch r {
	case RecommendationMerge:
		return LabelReadyForMerge
	case RecommendationNeedsFixes:
		return LabelChangesRequested
	case RecommendationReject:
		return LabelRejectedByAI
	default:
		return LabelNeedsReview
	}
}
