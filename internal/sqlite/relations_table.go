package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// AddRelation links two issues symmetrically. The pair is stored smaller ID
// first, so (a, b) and (b, a) are the same relation. It reports false when
// the relation already existed.
func (s *Store) AddRelation(issueID1, issueID2 int64) (bool, error) {
	if issueID1 == issueID2 {
		return false, fmt.Errorf("relating issue %d: %w", issueID1, types.ErrSelfRelation)
	}
	a, b := types.CanonicalPair(issueID1, issueID2)
	ok, err := s.execChanged(
		"INSERT OR IGNORE INTO relations (issue_id_1, issue_id_2, created_at) VALUES (?, ?, ?)",
		a, b, timefmt.Format(timefmt.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("relating issues %d and %d: %w", a, b, err)
	}
	return ok, nil
}

// RemoveRelation unlinks two issues in either argument order.
func (s *Store) RemoveRelation(issueID1, issueID2 int64) (bool, error) {
	a, b := types.CanonicalPair(issueID1, issueID2)
	ok, err := s.execChanged("DELETE FROM relations WHERE issue_id_1 = ? AND issue_id_2 = ?", a, b)
	if err != nil {
		return false, fmt.Errorf("unrelating issues %d and %d: %w", a, b, err)
	}
	return ok, nil
}

// GetRelatedIssues returns the issues related to issueID, ordered by ID.
func (s *Store) GetRelatedIssues(issueID int64) ([]*types.Issue, error) {
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Distinct().
		Join("JOIN relations r ON (r.issue_id_1 = ? AND r.issue_id_2 = i.id) OR (r.issue_id_2 = ? AND r.issue_id_1 = i.id)",
			issueID, issueID).
		OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("getting issues related to %d: %w", issueID, err)
	}
	return issues, nil
}
