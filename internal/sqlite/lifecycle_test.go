package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func TestCloseReopenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, "cycle me")

	for i := 0; i < 2; i++ {
		ok, err := s.CloseIssue(id)
		require.NoError(t, err)
		assert.True(t, ok)

		closed, err := s.RequireIssue(id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)

		ok, err = s.ReopenIssue(id)
		require.NoError(t, err)
		assert.True(t, ok)

		reopened, err := s.RequireIssue(id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusOpen, reopened.Status)
		assert.Nil(t, reopened.ClosedAt)
	}

	ok, err := s.CloseIssue(9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveTransitions(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, "archivable")

	ok, err := s.ArchiveIssue(id)
	require.NoError(t, err)
	assert.False(t, ok, "open issues cannot be archived")
	got, err := s.RequireIssue(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, got.Status)

	_, err = s.CloseIssue(id)
	require.NoError(t, err)
	ok, err = s.ArchiveIssue(id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.RequireIssue(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusArchived, got.Status)
	assert.NotNil(t, got.ClosedAt, "archived issues keep closed_at")

	archived, err := s.ListArchivedIssues()
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, issueIDs(archived))

	ok, err = s.UnarchiveIssue(id)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = s.RequireIssue(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosed, got.Status)

	ok, err = s.UnarchiveIssue(id)
	require.NoError(t, err)
	assert.False(t, ok, "only archived issues can be unarchived")
}

func TestArchiveOlderThan(t *testing.T) {
	s := newTestStore(t)
	old := mustCreate(t, s, "old")
	recent := mustCreate(t, s, "recent")
	open := mustCreate(t, s, "open")

	for _, id := range []int64{old, recent} {
		_, err := s.CloseIssue(id)
		require.NoError(t, err)
	}
	longAgo := timefmt.Format(timefmt.Now().Add(-60 * 24 * time.Hour))
	_, err := s.exec("UPDATE issues SET closed_at = ? WHERE id = ?", longAgo, old)
	require.NoError(t, err)

	n, err := s.ArchiveOlderThan(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for id, want := range map[int64]string{old: types.StatusArchived, recent: types.StatusClosed, open: types.StatusOpen} {
		got, err := s.RequireIssue(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "issue %d", id)
	}

	n, err = s.ArchiveClosedBefore(timefmt.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteIssueCascadesToSubissues(t *testing.T) {
	s := newTestStore(t)
	parent := mustCreate(t, s, "parent")
	keep := mustCreate(t, s, "unrelated")

	const n = 4
	var children []int64
	for i := 0; i < n; i++ {
		child, err := s.CreateSubissue(parent, "child", nil, types.PriorityLow)
		require.NoError(t, err)
		children = append(children, child)
	}
	grandchild, err := s.CreateSubissue(children[0], "grandchild", nil, types.PriorityLow)
	require.NoError(t, err)

	// Everything that can point at the subtree.
	_, err = s.AddLabel(children[1], "x")
	require.NoError(t, err)
	_, err = s.AddComment(grandchild, "note")
	require.NoError(t, err)
	_, err = s.AddDependency(keep, children[2])
	require.NoError(t, err)
	_, err = s.AddRelation(keep, children[3])
	require.NoError(t, err)
	m, err := s.CreateMilestone("m", nil)
	require.NoError(t, err)
	_, err = s.AddIssueToMilestone(m, parent)
	require.NoError(t, err)
	_, err = s.StartTimer(children[0])
	require.NoError(t, err)

	ok, err := s.DeleteIssue(parent)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, id := range append([]int64{parent, grandchild}, children...) {
		got, err := s.GetIssue(id)
		require.NoError(t, err)
		assert.Nil(t, got, "issue %d should be gone", id)
	}

	var count int
	require.NoError(t, s.queryRow("SELECT COUNT(*) FROM issues").Scan(&count))
	assert.Equal(t, 1, count)

	blockers, err := s.GetBlockers(keep)
	require.NoError(t, err)
	assert.Empty(t, blockers)
	related, err := s.GetRelatedIssues(keep)
	require.NoError(t, err)
	assert.Empty(t, related)
	members, err := s.GetMilestoneIssues(m)
	require.NoError(t, err)
	assert.Empty(t, members)
	timer, err := s.GetActiveTimer()
	require.NoError(t, err)
	assert.Nil(t, timer)

	for _, table := range []string{"labels", "comments", "time_entries"} {
		require.NoError(t, s.queryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, table)
	}

	ok, err = s.DeleteIssue(parent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIssueClearsSessionReference(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, "in progress")

	sessionID, err := s.StartSession()
	require.NoError(t, err)
	_, err = s.SetSessionIssue(sessionID, id)
	require.NoError(t, err)

	_, err = s.DeleteIssue(id)
	require.NoError(t, err)

	sess, err := s.GetCurrentSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, sessionID, sess.ID)
	assert.Nil(t, sess.ActiveIssueID)
}

func TestDeleteReparentedSubtree(t *testing.T) {
	// A child with a lower ID than its parent is still removed.
	s := newTestStore(t)
	child := mustCreate(t, s, "older child")
	parent := mustCreate(t, s, "newer parent")
	_, err := s.UpdateParent(child, &parent)
	require.NoError(t, err)

	_, err = s.DeleteIssue(parent)
	require.NoError(t, err)

	got, err := s.GetIssue(child)
	require.NoError(t, err)
	assert.Nil(t, got)
}
