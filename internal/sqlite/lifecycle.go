package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/chainlink/internal/graph"
	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// CloseIssue marks an issue closed and stamps closed_at. Closing a closed
// issue restamps it. It reports whether the issue exists.
func (s *Store) CloseIssue(id int64) (bool, error) {
	now := timefmt.Format(timefmt.Now())
	ok, err := s.execChanged(
		"UPDATE issues SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?",
		types.StatusClosed, now, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("closing issue %d: %w", id, err)
	}
	return ok, nil
}

// ReopenIssue returns an issue to open and clears closed_at.
func (s *Store) ReopenIssue(id int64) (bool, error) {
	ok, err := s.execChanged(
		"UPDATE issues SET status = ?, closed_at = NULL, updated_at = ? WHERE id = ?",
		types.StatusOpen, timefmt.Format(timefmt.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("reopening issue %d: %w", id, err)
	}
	return ok, nil
}

// ArchiveIssue moves a closed issue to archived. Issues in any other state
// are left alone and report false.
func (s *Store) ArchiveIssue(id int64) (bool, error) {
	ok, err := s.execChanged(
		"UPDATE issues SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		types.StatusArchived, timefmt.Format(timefmt.Now()), id, types.StatusClosed,
	)
	if err != nil {
		return false, fmt.Errorf("archiving issue %d: %w", id, err)
	}
	return ok, nil
}

// UnarchiveIssue moves an archived issue back to closed.
func (s *Store) UnarchiveIssue(id int64) (bool, error) {
	ok, err := s.execChanged(
		"UPDATE issues SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		types.StatusClosed, timefmt.Format(timefmt.Now()), id, types.StatusArchived,
	)
	if err != nil {
		return false, fmt.Errorf("unarchiving issue %d: %w", id, err)
	}
	return ok, nil
}

// ListArchivedIssues returns archived issues, newest ID first.
func (s *Store) ListArchivedIssues() ([]*types.Issue, error) {
	return s.ListIssues(types.IssueFilter{Status: types.Ptr(types.StatusArchived)})
}

// ArchiveOlderThan archives every issue closed more than days days ago and
// returns how many moved.
func (s *Store) ArchiveOlderThan(days int) (int64, error) {
	return s.ArchiveClosedBefore(timefmt.Now().Add(-time.Duration(days) * 24 * time.Hour))
}

// ArchiveClosedBefore archives every closed issue whose closed_at is before
// cutoff, in one statement, and returns how many moved.
func (s *Store) ArchiveClosedBefore(cutoff time.Time) (int64, error) {
	res, err := s.exec(
		"UPDATE issues SET status = ?, updated_at = ? WHERE status = ? AND closed_at < ?",
		types.StatusArchived, timefmt.Format(timefmt.Now()), types.StatusClosed, timefmt.Format(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("archiving issues closed before %s: %w", timefmt.Format(cutoff), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archiving issues: %w", err)
	}
	return n, nil
}

// cascadeDeletes clear every row that references an issue. The sessions
// entry keeps the session and drops only the reference.
var cascadeDeletes = []struct {
	what string
	stmt string
	args int
}{
	{"labels", "DELETE FROM labels WHERE issue_id = ?", 1},
	{"comments", "DELETE FROM comments WHERE issue_id = ?", 1},
	{"dependencies", "DELETE FROM dependencies WHERE blocker_id = ? OR blocked_id = ?", 2},
	{"relations", "DELETE FROM relations WHERE issue_id_1 = ? OR issue_id_2 = ?", 2},
	{"milestone memberships", "DELETE FROM milestone_issues WHERE issue_id = ?", 1},
	{"time entries", "DELETE FROM time_entries WHERE issue_id = ?", 1},
	{"session references", "UPDATE sessions SET active_issue_id = NULL WHERE active_issue_id = ?", 1},
}

// DeleteIssue removes an issue and all of its subissues, at any depth,
// together with everything that references them. It runs in one
// transaction and reports whether the issue existed.
func (s *Store) DeleteIssue(id int64) (bool, error) {
	var deleted bool
	err := s.inTransaction(func(tx *Store) error {
		found, err := tx.exists("SELECT 1 FROM issues WHERE id = ?", id)
		if err != nil || !found {
			return err
		}

		descendants, err := graph.Descendants(graph.AdjacencyFunc(tx.subissueIDs), id)
		if err != nil {
			return fmt.Errorf("collecting subissues: %w", err)
		}

		// Subissues first, newest ID first, then the root.
		targets := make([]int64, 0, len(descendants)+1)
		for i := len(descendants) - 1; i >= 0; i-- {
			targets = append(targets, descendants[i])
		}
		targets = append(targets, id)

		for _, target := range targets {
			if err := tx.deleteIssueRow(target); err != nil {
				return err
			}
		}
		logging.Logger.Debug("issue deleted", "id", id, "subissues", len(descendants))
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("deleting issue %d: %w", id, err)
	}
	return deleted, nil
}

func (s *Store) deleteIssueRow(id int64) error {
	for _, c := range cascadeDeletes {
		args := []any{id}
		if c.args == 2 {
			args = append(args, id)
		}
		if _, err := s.exec(c.stmt, args...); err != nil {
			return fmt.Errorf("clearing %s of issue %d: %w", c.what, id, err)
		}
	}
	if _, err := s.exec("UPDATE issues SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
		return fmt.Errorf("detaching subissues of %d: %w", id, err)
	}
	if _, err := s.exec("DELETE FROM issues WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting issue row %d: %w", id, err)
	}
	return nil
}
