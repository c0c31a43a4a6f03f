package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type gitLabPayload struct {
	ObjectKind string `json:"object_kind"`
	Project    struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		PathWithNamespace string `json:"path_with_namespace"`
		WebURL            string `json:"web_url"`
		AvatarURL         string `json:"avatar_url"`
		Description       string `json:"description"`
	} `json:"project"`
	ObjectAttributes struct {
		IID         int    `json:"iid"`
		Title       string `json:"title"`
		Description string `json:"description"`
		State       string `json:"state"`
		URL         string `json:"url"`
		WebURL      string `json:"web_url"`
		CreatedAt   string `json:"created_at"`
		UpdatedAt   string `json:"updated_at"`
		LastCommit  struct {
			Author struct {
				Name string `json:"name"`
			} `json:"author"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
}

// GitLab sends ISO 8601 from the API and a space-separated form from
// system hooks.
var gitLabTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 UTC",
}

// ParseMergeRequestEvent decodes a "Merge Request Hook" body. Only a
// malformed JSON document is an error; missing fields are left empty.
func ParseMergeRequestEvent(raw []byte) (*MergeRequestEvent, error) {
	var payload gitLabPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}

	attrs := payload.ObjectAttributes
	url := attrs.URL
	if url == "" {
		url = attrs.WebURL
	}

	return &MergeRequestEvent{
		Project: ProjectMeta{
			ID:                payload.Project.ID,
			Name:              payload.Project.Name,
			PathWithNamespace: payload.Project.PathWithNamespace,
			WebURL:            payload.Project.WebURL,
			AvatarURL:         payload.Project.AvatarURL,
			Description:       payload.Project.Description,
		},
		MergeRequest: MergeRequestMeta{
			IID:         attrs.IID,
			Title:       attrs.Title,
			Description: attrs.Description,
			State:       attrs.State,
			URL:         url,
			Author:      attrs.LastCommit.Author.Name,
			CreatedAt:   parseGitLabTime(attrs.CreatedAt),
			UpdatedAt:   parseGitLabTime(attrs.UpdatedAt),
		},
	}, nil
}

func parseGitLabTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range gitLabTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
