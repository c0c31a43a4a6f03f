package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/drewdunne/aireview/internal/model"
)

// ReplaceReview makes review the only review of the merge request. The old
// review and its issues are removed in the same transaction, so readers see
// either the previous review or the new one. It returns the new review id.
func (s *Store) ReplaceReview(ctx context.Context, mrID int64, review model.Review, issues []model.Issue) (int64, error) {
	const lockQuery = `SELECT id FROM merge_requests WHERE id = ? FOR UPDATE`
	const deleteQuery = `DELETE FROM reviews WHERE merge_request_id = ?`
	const reviewQuery = `
		INSERT INTO reviews (merge_request_id, recommendation, confidence, summary, processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	const issueQuery = `
		INSERT INTO issues (review_id, file_path, line, severity, message, suggested_fix, rule)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var reviewID int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		// Concurrent replacements for one merge request queue on the row lock.
		// SQLite already serializes them on its single writer connection.
		if s.db.driver == DriverPostgres {
			var locked int64
			err := tx.QueryRowContext(ctx, s.db.rebind(lockQuery), mrID).Scan(&locked)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("lock merge request: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, s.db.rebind(deleteQuery), mrID); err != nil {
			return fmt.Errorf("delete previous review: %w", err)
		}

		err := tx.QueryRowContext(ctx, s.db.rebind(reviewQuery),
			mrID, string(review.Recommendation), review.Confidence, review.Summary,
			review.ProcessingTimeMs, s.db.timeArg(createdAt),
		).Scan(&reviewID)
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, s.db.rebind(issueQuery))
		if err != nil {
			return fmt.Errorf("prepare issue insert: %w", err)
		}
		defer stmt.Close()

		for _, issue := range issues {
			var line any
			if issue.Line != nil {
				line = *issue.Line
			}
			_, err := stmt.ExecContext(ctx,
				reviewID, issue.FilePath, line, string(issue.Severity), issue.Message,
				model.EnsureFix(issue.SuggestedFix), issue.Rule,
			)
			if err != nil {
				return fmt.Errorf("insert issue: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace review for merge request %d: %w", mrID, err)
	}

	return reviewID, nil
}

// GetReview returns the current review of a merge request with its issues
// ordered by severity (most severe first), file path and line.
func (s *Store) GetReview(ctx context.Context, mrID int64) (*model.Review, error) {
	const reviewQuery = `
		SELECT id, merge_request_id, recommendation, confidence, summary, processing_time_ms, created_at
		FROM reviews WHERE merge_request_id = ?
	`
	const issueQuery = `
		SELECT id, review_id, file_path, line, severity, message, suggested_fix, rule
		FROM issues WHERE review_id = ?
		ORDER BY CASE severity
			WHEN 'CRITICAL' THEN 4
			WHEN 'ERROR' THEN 3
			WHEN 'WARNING' THEN 2
			WHEN 'INFO' THEN 1
			ELSE 0
		END DESC, file_path, line, id
	`

	var r model.Review
	err := s.db.withReadTx(ctx, func(tx *sql.Tx) error {
		var rec string
		err := tx.QueryRowContext(ctx, s.db.rebind(reviewQuery), mrID).Scan(
			&r.ID, &r.MergeRequestID, &rec, &r.Confidence, &r.Summary, &r.ProcessingTimeMs, scanTime(&r.CreatedAt),
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get review for merge request %d: %w", mrID, err)
		}
		r.Recommendation = model.Recommendation(rec)

		rows, err := tx.QueryContext(ctx, s.db.rebind(issueQuery), r.ID)
		if err != nil {
			return fmt.Errorf("list issues for review %d: %w", r.ID, err)
		}
		defer s.closeRows(rows)

		r.Issues = []model.Issue{}
		for rows.Next() {
			var (
				issue model.Issue
				line  sql.NullInt64
				sev   string
			)
			if err := rows.Scan(&issue.ID, &issue.ReviewID, &issue.FilePath, &line, &sev,
				&issue.Message, &issue.SuggestedFix, &issue.Rule); err != nil {
				return fmt.Errorf("scan issue: %w", err)
			}
			if line.Valid {
				l := int(line.Int64)
				issue.Line = &l
			}
			issue.Severity = model.Severity(sev)
			r.Issues = append(r.Issues, issue)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate issues: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &r, nil
}
