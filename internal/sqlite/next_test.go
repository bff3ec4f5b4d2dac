package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func TestRecommendNext(t *testing.T) {
	t.Run("nothing ready", func(t *testing.T) {
		s := newTestStore(t)
		rec, err := s.RecommendNext()
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("highest priority wins", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.CreateIssue("low", nil, types.PriorityLow)
		require.NoError(t, err)
		critical, err := s.CreateIssue("critical", nil, types.PriorityCritical)
		require.NoError(t, err)
		medium, err := s.CreateIssue("medium", nil, types.PriorityMedium)
		require.NoError(t, err)

		rec, err := s.RecommendNext()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, critical, rec.Issue.ID)
		assert.Equal(t, 400, rec.Score)
		require.Len(t, rec.Alternatives, 2)
		assert.Equal(t, medium, rec.Alternatives[0].Issue.ID)
	})

	t.Run("partially complete work gets a boost", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.CreateIssue("fresh high", nil, types.PriorityHigh)
		require.NoError(t, err)
		started, err := s.CreateIssue("started high", nil, types.PriorityHigh)
		require.NoError(t, err)
		done, err := s.CreateSubissue(started, "done part", nil, types.PriorityLow)
		require.NoError(t, err)
		_, err = s.CreateSubissue(started, "open part", nil, types.PriorityLow)
		require.NoError(t, err)
		_, err = s.CloseIssue(done)
		require.NoError(t, err)

		rec, err := s.RecommendNext()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, started, rec.Issue.ID)
		assert.Equal(t, 350, rec.Score)
		assert.Equal(t, 1, rec.Completed)
		assert.Equal(t, 2, rec.Total)
		assert.True(t, rec.HasProgress())
	})

	t.Run("ties keep ID order", func(t *testing.T) {
		s := newTestStore(t)
		first := mustCreate(t, s, "first")
		mustCreate(t, s, "second")

		rec, err := s.RecommendNext()
		require.NoError(t, err)
		assert.Equal(t, first, rec.Issue.ID)
	})

	t.Run("falls back to a subissue", func(t *testing.T) {
		s := newTestStore(t)
		parent := mustCreate(t, s, "parent")
		child, err := s.CreateSubissue(parent, "child", nil, types.PriorityLow)
		require.NoError(t, err)
		// parent waits on its child.
		_, err = s.AddDependency(parent, child)
		require.NoError(t, err)

		rec, err := s.RecommendNext()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, child, rec.Issue.ID)
		assert.Zero(t, rec.Score)
	})
}
