package provider

import "github.com/drewdunne/aireview/internal/model"

// MergeLabels drops every AI-owned label from current and adds labels.
// The result keeps the order of the surviving labels, followed by the new
// ones, with duplicates removed.
func MergeLabels(current, labels []string) []string {
	seen := make(map[string]bool, len(current)+len(labels))
	merged := make([]string, 0, len(current)+len(labels))

	for _, l := range current {
		if l == "" || model.IsAILabel(l) || seen[l] {
			continue
		}
		seen[l] = true
		merged = append(merged, l)
	}
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		merged = append(merged, l)
	}
	return merged
}
