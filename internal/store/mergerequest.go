package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/drewdunne/aireview/internal/model"
)

// UpsertMergeRequest inserts or updates a merge request keyed by
// (project, iid) and returns its internal id.
func (s *Store) UpsertMergeRequest(ctx context.Context, mr model.MergeRequest) (int64, error) {
	const query = `
		INSERT INTO merge_requests (project_id, iid, title, description, author, state, web_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, iid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			author = excluded.author,
			state = excluded.state,
			web_url = excluded.web_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id int64
	err := s.db.Writer.QueryRowContext(ctx, s.db.rebind(query),
		mr.ProjectID, mr.IID, mr.Title, mr.Description, mr.Author, mr.State, mr.WebURL,
		s.db.timeArg(mr.CreatedAt), s.db.timeArg(mr.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert merge request %d!%d: %w", mr.ProjectID, mr.IID, err)
	}

	return id, nil
}

const mergeRequestSelect = `
	SELECT m.id, m.project_id, m.iid, m.title, m.description, m.author, m.state, m.web_url,
		m.created_at, m.updated_at, p.gitlab_id
	FROM merge_requests m
	JOIN projects p ON p.id = m.project_id`

// GetMergeRequest returns a merge request with its project's GitLab id and
// current review, if any.
func (s *Store) GetMergeRequest(ctx context.Context, id int64) (*model.MergeRequest, error) {
	row := s.db.Reader.QueryRowContext(ctx, s.db.rebind(mergeRequestSelect+` WHERE m.id = ?`), id)

	mr, err := scanMergeRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get merge request %d: %w", id, err)
	}

	if err := s.attachReview(ctx, mr); err != nil {
		return nil, err
	}
	return mr, nil
}

// ListMergeRequests returns merge requests ordered by most recently
// updated. A projectID of 0 lists every project.
func (s *Store) ListMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error) {
	query := mergeRequestSelect
	var args []any
	if projectID != 0 {
		query += ` WHERE m.project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY m.updated_at DESC, m.id DESC`

	rows, err := s.db.Reader.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list merge requests: %w", err)
	}

	var mrs []model.MergeRequest
	for rows.Next() {
		mr, err := scanMergeRequest(rows)
		if err != nil {
			s.closeRows(rows)
			return nil, fmt.Errorf("scan merge request: %w", err)
		}
		mrs = append(mrs, *mr)
	}
	err = rows.Err()
	s.closeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("iterate merge requests: %w", err)
	}

	// Reviews are loaded after the cursor is closed; the SQLite reader pool is small.
	for i := range mrs {
		if err := s.attachReview(ctx, &mrs[i]); err != nil {
			return nil, err
		}
	}
	return mrs, nil
}

func (s *Store) attachReview(ctx context.Context, mr *model.MergeRequest) error {
	review, err := s.GetReview(ctx, mr.ID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	mr.Review = review
	return nil
}

func scanMergeRequest(row scanner) (*model.MergeRequest, error) {
	var mr model.MergeRequest

	err := row.Scan(
		&mr.ID, &mr.ProjectID, &mr.IID, &mr.Title, &mr.Description, &mr.Author, &mr.State, &mr.WebURL,
		scanTime(&mr.CreatedAt), scanTime(&mr.UpdatedAt), &mr.ProjectGitLabID,
	)
	if err != nil {
		return nil, err
	}
	return &mr, nil
}
