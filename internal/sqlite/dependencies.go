package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/graph"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// The Store's blocking edges feed the cycle guard and transitive queries.
var _ graph.Adjacency = (*Store)(nil)

// BlockingOf returns the issues id blocks directly.
func (s *Store) BlockingOf(id int64) ([]int64, error) {
	return s.GetBlocking(id)
}

// AddDependency records that blockerID must resolve before blockedID is
// ready. Self-blocks and edges that would close a cycle are rejected with
// an error wrapping types.ErrIntegrity, and the edge set is left as it was.
// An edge that already exists reports false.
func (s *Store) AddDependency(blockedID, blockerID int64) (bool, error) {
	if blockedID == blockerID {
		return false, fmt.Errorf("adding dependency on issue %d: %w", blockedID, types.ErrSelfBlock)
	}

	var added bool
	err := s.inTransaction(func(tx *Store) error {
		cycle, err := graph.WouldCreateCycle(tx, blockedID, blockerID)
		if err != nil {
			return fmt.Errorf("checking for cycles: %w", err)
		}
		if cycle {
			return fmt.Errorf("issue %d blocking %d: %w", blockerID, blockedID, types.ErrCycle)
		}
		added, err = tx.execChanged(
			"INSERT OR IGNORE INTO dependencies (blocker_id, blocked_id) VALUES (?, ?)",
			blockerID, blockedID,
		)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("adding dependency: %w", err)
	}
	return added, nil
}

// RemoveDependency deletes the edge blockerID → blockedID and reports
// whether it existed.
func (s *Store) RemoveDependency(blockedID, blockerID int64) (bool, error) {
	ok, err := s.execChanged(
		"DELETE FROM dependencies WHERE blocker_id = ? AND blocked_id = ?",
		blockerID, blockedID,
	)
	if err != nil {
		return false, fmt.Errorf("removing dependency: %w", err)
	}
	return ok, nil
}

// GetBlockers returns the issues that block issueID, sorted.
func (s *Store) GetBlockers(issueID int64) ([]int64, error) {
	ids, err := s.queryIDs(
		"SELECT blocker_id FROM dependencies WHERE blocked_id = ? ORDER BY blocker_id", issueID)
	if err != nil {
		return nil, fmt.Errorf("getting blockers of issue %d: %w", issueID, err)
	}
	return ids, nil
}

// GetBlocking returns the issues that issueID blocks, sorted.
func (s *Store) GetBlocking(issueID int64) ([]int64, error) {
	ids, err := s.queryIDs(
		"SELECT blocked_id FROM dependencies WHERE blocker_id = ? ORDER BY blocked_id", issueID)
	if err != nil {
		return nil, fmt.Errorf("getting issues blocked by %d: %w", issueID, err)
	}
	return ids, nil
}

// TransitivelyBlocked returns every issue that issueID blocks directly or
// through other issues, sorted.
func (s *Store) TransitivelyBlocked(issueID int64) ([]int64, error) {
	ids, err := graph.Descendants(s, issueID)
	if err != nil {
		return nil, fmt.Errorf("walking dependencies of issue %d: %w", issueID, err)
	}
	return ids, nil
}

// openBlockerExists matches an issue "i" that has at least one open blocker.
const openBlockerExists = `EXISTS (
    SELECT 1 FROM dependencies d
    JOIN issues b ON b.id = d.blocker_id
    WHERE d.blocked_id = i.id AND b.status = 'open')`

// ListReadyIssues returns open issues with no open blocker, ordered by ID.
// Closed and archived blockers do not hold anything up.
func (s *Store) ListReadyIssues() ([]*types.Issue, error) {
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Where("i.status = ?", types.StatusOpen).
		Where("NOT " + openBlockerExists).
		OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("listing ready issues: %w", err)
	}
	return issues, nil
}

// ListBlockedIssues returns open issues with at least one open blocker,
// ordered by ID.
func (s *Store) ListBlockedIssues() ([]*types.Issue, error) {
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Where("i.status = ?", types.StatusOpen).
		Where(openBlockerExists).
		OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("listing blocked issues: %w", err)
	}
	return issues, nil
}
