package store

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drewdunne/aireview/internal/model"
)

// setupTestStore creates a named shared in-memory SQLite database for one
// test. Writer and reader share it via cache=shared.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	db, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))

	return New(db, nil)
}

func addTestProject(t *testing.T, s *Store, gitlabID int64) int64 {
	t.Helper()
	id, _, err := s.UpsertProject(context.Background(), model.Project{
		GitLabID:          gitlabID,
		Name:              fmt.Sprintf("project-%d", gitlabID),
		PathWithNamespace: fmt.Sprintf("group/project-%d", gitlabID),
	})
	require.NoError(t, err)
	return id
}

func addTestMR(t *testing.T, s *Store, projectID int64, iid int, state string) int64 {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.UpsertMergeRequest(context.Background(), model.MergeRequest{
		ProjectID: projectID,
		IID:       iid,
		Title:     fmt.Sprintf("MR %d", iid),
		Author:    "Jane Doe",
		State:     state,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Duration(iid) * time.Minute),
	})
	require.NoError(t, err)
	return id
}

func intPtr(i int) *int { return &i }
