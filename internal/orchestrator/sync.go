package orchestrator

import (
	"context"
	"fmt"

	"github.com/drewdunne/aireview/internal/model"
)

// SyncResult summarises a project sync.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// SyncProjects imports every project the GitLab token is a member of.
func (o *Orchestrator) SyncProjects(ctx context.Context) (SyncResult, error) {
	projects, err := o.provider.ListProjects(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: listing projects: %w", ErrProvider, err)
	}

	res := SyncResult{Total: len(projects)}
	for _, p := range projects {
		_, created, err := o.store.UpsertProject(ctx, model.Project{
			GitLabID:          p.ID,
			Name:              p.Name,
			PathWithNamespace: p.PathWithNamespace,
			WebURL:            p.WebURL,
			AvatarURL:         p.AvatarURL,
			Description:       p.Description,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	o.logger.Info("projects synced", "created", res.Created, "updated", res.Updated, "total", res.Total)
	return res, nil
}
