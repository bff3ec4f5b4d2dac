package sqlite

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// Scoring for RecommendNext.
const (
	priorityScoreUnit = 100
	inProgressBonus   = 50
	maxAlternatives   = 3
)

// RecommendNext picks the ready issue to work on next. Only top-level
// issues are ranked: priority weight × 100, plus 50 when some but not all
// of its subissues are resolved. Ties keep ID order. When every ready issue
// is a subissue, the lowest-ID one is returned unscored. It returns nil when
// nothing is ready.
func (s *Store) RecommendNext() (*types.Recommendation, error) {
	ready, err := s.ListReadyIssues()
	if err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return nil, nil
	}

	var scored []types.Recommendation
	for _, issue := range ready {
		if issue.ParentID != nil {
			continue
		}
		rec, err := s.scoreIssue(issue)
		if err != nil {
			return nil, err
		}
		scored = append(scored, rec)
	}

	if len(scored) == 0 {
		return &types.Recommendation{Issue: ready[0]}, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	top := scored[0]
	rest := scored[1:]
	if len(rest) > maxAlternatives {
		rest = rest[:maxAlternatives]
	}
	top.Alternatives = rest
	return &top, nil
}

func (s *Store) scoreIssue(issue *types.Issue) (types.Recommendation, error) {
	subissues, err := s.GetSubissues(issue.ID)
	if err != nil {
		return types.Recommendation{}, fmt.Errorf("scoring issue %d: %w", issue.ID, err)
	}
	completed := 0
	for _, sub := range subissues {
		if sub.IsResolved() {
			completed++
		}
	}

	score := types.PriorityWeight(issue.Priority) * priorityScoreUnit
	if completed > 0 && completed < len(subissues) {
		score += inProgressBonus
	}
	return types.Recommendation{
		Issue:     issue,
		Score:     score,
		Completed: completed,
		Total:     len(subissues),
	}, nil
}
