package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/drewdunne/aireview/internal/model"
)

// UpsertProject inserts or updates a project keyed by its GitLab id. Every
// metadata field is overwritten. It returns the internal id and whether the
// row was newly created.
func (s *Store) UpsertProject(ctx context.Context, p model.Project) (int64, bool, error) {
	const existsQuery = `SELECT id FROM projects WHERE gitlab_id = ?`
	const upsertQuery = `
		INSERT INTO projects (gitlab_id, name, path_with_namespace, web_url, avatar_url, description, created_at, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gitlab_id) DO UPDATE SET
			name = excluded.name,
			path_with_namespace = excluded.path_with_namespace,
			web_url = excluded.web_url,
			avatar_url = excluded.avatar_url,
			description = excluded.description,
			last_synced_at = excluded.last_synced_at
		RETURNING id
	`

	now := s.db.timeArg(time.Now())
	var (
		id      int64
		created bool
	)

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, s.db.rebind(existsQuery), p.GitLabID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
		case err != nil:
			return err
		}

		return tx.QueryRowContext(ctx, s.db.rebind(upsertQuery),
			p.GitLabID, p.Name, p.PathWithNamespace, p.WebURL, p.AvatarURL, p.Description, now, now,
		).Scan(&id)
	})
	if err != nil {
		return 0, false, fmt.Errorf("upsert project %d: %w", p.GitLabID, err)
	}

	return id, created, nil
}

const projectColumns = `p.id, p.gitlab_id, p.name, p.path_with_namespace, p.web_url, p.avatar_url, p.description, p.created_at, p.last_synced_at`

// GetProject returns the project with the given internal id.
func (s *Store) GetProject(ctx context.Context, id int64) (*model.ProjectStats, error) {
	query := `SELECT ` + projectColumns + `, ` + projectCounts + ` FROM projects p WHERE p.id = ?`

	row := s.db.Reader.QueryRowContext(ctx, s.db.rebind(query), id)
	ps, err := scanProjectStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return ps, nil
}

// ListProjects returns every project with merge-request counts, ordered by path.
func (s *Store) ListProjects(ctx context.Context) ([]model.ProjectStats, error) {
	query := `SELECT ` + projectColumns + `, ` + projectCounts + ` FROM projects p ORDER BY p.path_with_namespace, p.id`

	rows, err := s.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer s.closeRows(rows)

	var projects []model.ProjectStats
	for rows.Next() {
		ps, err := scanProjectStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

const projectCounts = `
	(SELECT COUNT(*) FROM merge_requests m WHERE m.project_id = p.id),
	(SELECT COUNT(*) FROM merge_requests m WHERE m.project_id = p.id AND m.state = 'opened'),
	(SELECT COUNT(*) FROM merge_requests m JOIN reviews r ON r.merge_request_id = m.id WHERE m.project_id = p.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanProjectStats(row scanner) (*model.ProjectStats, error) {
	var ps model.ProjectStats

	err := row.Scan(
		&ps.ID, &ps.GitLabID, &ps.Name, &ps.PathWithNamespace, &ps.WebURL, &ps.AvatarURL, &ps.Description,
		scanTime(&ps.CreatedAt), scanTime(&ps.LastSyncedAt),
		&ps.MRCount, &ps.OpenMRCount, &ps.ReviewedMRCount,
	)
	if err != nil {
		return nil, err
	}
	return &ps, nil
}
