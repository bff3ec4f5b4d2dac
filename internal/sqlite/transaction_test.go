package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func countIssues(t *testing.T, s *Store) int {
	t.Helper()
	all, err := s.ListIssues(types.IssueFilter{})
	require.NoError(t, err)
	return len(all)
}

func TestRunInTransactionCommits(t *testing.T) {
	s := newTestStore(t)

	var a, b int64
	err := s.RunInTransaction(func(tx types.Tracker) error {
		var err error
		if a, err = tx.CreateIssue("a", nil, types.PriorityLow); err != nil {
			return err
		}
		if b, err = tx.CreateIssue("b", nil, types.PriorityLow); err != nil {
			return err
		}
		_, err = tx.AddDependency(a, b)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 2, countIssues(t, s))
	blockers, err := s.GetBlockers(a)
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, blockers)
}

func TestRunInTransactionRollsBackAndReturnsSameError(t *testing.T) {
	s := newTestStore(t)
	keep := mustCreate(t, s, "before")

	errBoom := errors.New("boom")
	err := s.RunInTransaction(func(tx types.Tracker) error {
		if _, err := tx.CreateIssue("doomed", nil, types.PriorityLow); err != nil {
			return err
		}
		if _, err := tx.CloseIssue(keep); err != nil {
			return err
		}
		return errBoom
	})
	assert.Same(t, errBoom, err)

	assert.Equal(t, 1, countIssues(t, s))
	got, err := s.RequireIssue(keep)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, got.Status)
}

func TestRunInTransactionWrappedErrorIsPreserved(t *testing.T) {
	s := newTestStore(t)
	err := s.RunInTransaction(func(tx types.Tracker) error {
		return fmt.Errorf("validating: %w", types.ErrNotFound)
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, "validating: entity not found", err.Error())
}

func TestRunInTransactionRollsBackOnPanic(t *testing.T) {
	s := newTestStore(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.RunInTransaction(func(tx types.Tracker) error {
			if _, err := tx.CreateIssue("doomed", nil, types.PriorityLow); err != nil {
				return err
			}
			panic("kaboom")
		})
	})

	assert.Equal(t, 0, countIssues(t, s))
	// The store is usable afterwards.
	mustCreate(t, s, "after panic")
	assert.Equal(t, 1, countIssues(t, s))
}

func TestNestedRunInTransactionSharesOuter(t *testing.T) {
	s := newTestStore(t)
	errOuter := errors.New("outer fails")

	err := s.RunInTransaction(func(tx types.Tracker) error {
		inner := tx.RunInTransaction(func(tx2 types.Tracker) error {
			_, err := tx2.CreateIssue("inner", nil, types.PriorityLow)
			return err
		})
		require.NoError(t, inner)
		return errOuter
	})
	assert.Same(t, errOuter, err)
	assert.Equal(t, 0, countIssues(t, s), "inner work rolls back with the outer transaction")
}

func TestIntegrityErrorInsideTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	_, err := s.AddDependency(a, b)
	require.NoError(t, err)

	err = s.RunInTransaction(func(tx types.Tracker) error {
		if _, err := tx.AddLabel(a, "touched"); err != nil {
			return err
		}
		_, err := tx.AddDependency(b, a)
		return err
	})
	assert.ErrorIs(t, err, types.ErrCycle)

	labels, err := s.GetLabels(a)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestCreateIssues(t *testing.T) {
	s := newTestStore(t)
	existing := mustCreate(t, s, "existing parent")

	ids, err := s.CreateIssues([]types.NewIssue{
		{Title: "epic", Priority: types.PriorityHigh, Labels: []string{"epic"}},
		{Title: "task 1", Priority: types.PriorityMedium, ParentIndex: types.Ptr(0)},
		{Title: "task 2", Priority: types.PriorityMedium, ParentIndex: types.Ptr(0), Labels: []string{"a", "b"}},
		{Title: "elsewhere", Priority: types.PriorityLow, ParentID: &existing},
	})
	require.NoError(t, err)
	require.Len(t, ids, 4)

	subs, err := s.GetSubissues(ids[0])
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[2]}, issueIDs(subs))

	subs, err = s.GetSubissues(existing)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[3]}, issueIDs(subs))

	labels, err := s.GetLabels(ids[2])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)
}

func TestCreateIssuesRollsBackOnBadParentIndex(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateIssues([]types.NewIssue{
		{Title: "ok", Priority: types.PriorityLow},
		{Title: "forward ref", Priority: types.PriorityLow, ParentIndex: types.Ptr(2)},
		{Title: "never", Priority: types.PriorityLow},
	})
	assert.ErrorIs(t, err, types.ErrInvalidParentIndex)
	assert.Equal(t, 0, countIssues(t, s))
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, isBusyError(nil))
	assert.False(t, isBusyError(errors.New("syntax error")))
	assert.True(t, isBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")))
}
