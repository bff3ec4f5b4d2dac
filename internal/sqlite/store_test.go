package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// newTestStore opens a fresh store in a temp directory and closes it when
// the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), types.DatabaseFileName))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// mustCreate creates a medium-priority issue with no description.
func mustCreate(t *testing.T, s *Store, title string) int64 {
	t.Helper()
	id, err := s.CreateIssue(title, nil, types.PriorityMedium)
	require.NoError(t, err)
	return id
}

func issueIDs(issues []*types.Issue) []int64 {
	ids := make([]int64, 0, len(issues))
	for _, i := range issues {
		ids = append(ids, i.ID)
	}
	return ids
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, path string)
		wantErr bool
	}{
		{
			name:    "missing file is created",
			prepare: func(t *testing.T, path string) {},
		},
		{
			name: "zero-length file is a fresh store",
			prepare: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, nil, 0o644))
			},
		},
		{
			name: "garbage file fails",
			prepare: func(t *testing.T, path string) {
				garbage := make([]byte, 4096)
				for i := range garbage {
					garbage[i] = byte('x')
				}
				require.NoError(t, os.WriteFile(path, garbage, 0o644))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "issues.db")
			tt.prepare(t, path)

			s, err := Open(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), path)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			v, err := s.SchemaVersion()
			require.NoError(t, err)
			assert.Equal(t, SchemaVersion, v)
		})
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.db")

	s, err := Open(path)
	require.NoError(t, err)
	id := mustCreate(t, s, "survives reopen")
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err = Open(path)
		require.NoError(t, err)
		got, err := s.GetIssue(id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "survives reopen", got.Title)
		require.NoError(t, s.Close())
	}
}

func TestOpenConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := OpenConfig(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, filepath.Join(dir, types.DatabaseFileName), s.Path())
	assert.FileExists(t, s.Path())

	_, err = OpenConfig(types.Config{DataDir: dir})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
	_, err = OpenConfig(types.Config{Backend: "postgres", DataDir: dir})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "issues.db"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	_, err = s.CreateIssue("after close", nil, types.PriorityLow)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = s.GetIssue(1)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = s.ListIssues(types.IssueFilter{})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	err = s.RunInTransaction(func(tx types.Tracker) error { return nil })
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

// legacyV6Schema is the layout files had before sessions cleared deleted
// issue references and recorded a last action.
var legacyV6Schema = []string{
	`CREATE TABLE issues (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        description TEXT,
        status TEXT NOT NULL DEFAULT 'open',
        priority TEXT NOT NULL DEFAULT 'medium',
        parent_id INTEGER,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        closed_at TEXT,
        FOREIGN KEY (parent_id) REFERENCES issues(id) ON DELETE CASCADE)`,
	`CREATE TABLE sessions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        started_at TEXT NOT NULL,
        ended_at TEXT,
        active_issue_id INTEGER,
        handoff_notes TEXT,
        FOREIGN KEY (active_issue_id) REFERENCES issues(id))`,
	`INSERT INTO issues (title, status, priority, created_at, updated_at)
        VALUES ('legacy', 'open', 'high', '2024-01-02T03:04:05+00:00', '2024-01-02T03:04:05+00:00')`,
	`INSERT INTO sessions (started_at, active_issue_id, handoff_notes)
        VALUES ('2024-01-02T03:04:05+00:00', 1, 'carry on')`,
	`PRAGMA user_version = 6`,
}

func TestMigrateFromV6(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range legacyV6Schema {
		_, err := raw.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	ok, err := s.hasColumn("sessions", "last_action")
	require.NoError(t, err)
	assert.True(t, ok)

	issue, err := s.GetIssue(1)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "legacy", issue.Title)
	assert.Equal(t, 2024, issue.CreatedAt.Year())

	sess, err := s.GetCurrentSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, sess.HandoffNotes)
	assert.Equal(t, "carry on", *sess.HandoffNotes)

	// Tables added after v6 exist and work.
	_, err = s.CreateMilestone("m1", nil)
	require.NoError(t, err)

	// Deleting the referenced issue now clears the session reference.
	deleted, err := s.DeleteIssue(1)
	require.NoError(t, err)
	assert.True(t, deleted)
	sess, err = s.GetCurrentSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Nil(t, sess.ActiveIssueID)
}
