package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

const milestoneColumns = "m.id, m.name, m.description, m.status, m.created_at, m.closed_at"

func scanMilestone(row rowScanner) (*types.Milestone, error) {
	var (
		m           types.Milestone
		description sql.NullString
		createdAt   string
		closedAt    sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &description, &m.Status, &createdAt, &closedAt); err != nil {
		return nil, err
	}
	m.Description = nullString(description)
	m.CreatedAt = timefmt.Parse(createdAt)
	m.ClosedAt = timefmt.ParseOptional(nullString(closedAt))
	return &m, nil
}

// CreateMilestone inserts an open milestone and returns its ID.
func (s *Store) CreateMilestone(name string, description *string) (int64, error) {
	id, err := s.execInsert(
		"INSERT INTO milestones (name, description, status, created_at) VALUES (?, ?, ?, ?)",
		name, description, types.MilestoneOpen, timefmt.Format(timefmt.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("creating milestone: %w", err)
	}
	return id, nil
}

// GetMilestone returns the milestone with the given ID, or nil.
func (s *Store) GetMilestone(id int64) (*types.Milestone, error) {
	m, err := s.getMilestone(newSelect(milestoneColumns, "milestones m").Where("m.id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("getting milestone %d: %w", id, err)
	}
	return m, nil
}

// ListMilestones returns milestones newest first. A nil status lists open
// milestones only; "all" lists every milestone.
func (s *Store) ListMilestones(status *string) ([]*types.Milestone, error) {
	b := newSelect(milestoneColumns, "milestones m").OrderBy("m.id DESC")
	switch {
	case status == nil:
		b.Where("m.status = ?", types.MilestoneOpen)
	case *status != types.StatusAll:
		b.Where("m.status = ?", *status)
	}

	query, args := b.SQL()
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}
	defer rows.Close()

	milestones := []*types.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating milestones: %w", err)
	}
	return milestones, nil
}

// AddIssueToMilestone adds an issue to a milestone. It reports false when
// the issue was already a member.
func (s *Store) AddIssueToMilestone(milestoneID, issueID int64) (bool, error) {
	ok, err := s.execChanged(
		"INSERT OR IGNORE INTO milestone_issues (milestone_id, issue_id) VALUES (?, ?)",
		milestoneID, issueID,
	)
	if err != nil {
		return false, fmt.Errorf("adding issue %d to milestone %d: %w", issueID, milestoneID, err)
	}
	return ok, nil
}

// RemoveIssueFromMilestone removes a membership and reports whether it
// existed.
func (s *Store) RemoveIssueFromMilestone(milestoneID, issueID int64) (bool, error) {
	ok, err := s.execChanged(
		"DELETE FROM milestone_issues WHERE milestone_id = ? AND issue_id = ?",
		milestoneID, issueID,
	)
	if err != nil {
		return false, fmt.Errorf("removing issue %d from milestone %d: %w", issueID, milestoneID, err)
	}
	return ok, nil
}

// GetMilestoneIssues returns a milestone's issues ordered by ID.
func (s *Store) GetMilestoneIssues(milestoneID int64) ([]*types.Issue, error) {
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Join("JOIN milestone_issues mi ON mi.issue_id = i.id").
		Where("mi.milestone_id = ?", milestoneID).
		OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("getting issues of milestone %d: %w", milestoneID, err)
	}
	return issues, nil
}

// GetIssueMilestone returns one milestone the issue belongs to, lowest ID
// first, or nil.
func (s *Store) GetIssueMilestone(issueID int64) (*types.Milestone, error) {
	m, err := s.getMilestone(newSelect(milestoneColumns, "milestones m").
		Join("JOIN milestone_issues mi ON mi.milestone_id = m.id").
		Where("mi.issue_id = ?", issueID).
		OrderBy("m.id").
		Limit(1))
	if err != nil {
		return nil, fmt.Errorf("getting milestone of issue %d: %w", issueID, err)
	}
	return m, nil
}

func (s *Store) getMilestone(b *selectBuilder) (*types.Milestone, error) {
	query, args := b.SQL()
	m, err := scanMilestone(s.queryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// CloseMilestone marks a milestone closed and stamps closed_at.
func (s *Store) CloseMilestone(id int64) (bool, error) {
	ok, err := s.execChanged(
		"UPDATE milestones SET status = ?, closed_at = ? WHERE id = ?",
		types.MilestoneClosed, timefmt.Format(timefmt.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("closing milestone %d: %w", id, err)
	}
	return ok, nil
}

// DeleteMilestone removes a milestone and its memberships. The issues stay.
func (s *Store) DeleteMilestone(id int64) (bool, error) {
	var deleted bool
	err := s.inTransaction(func(tx *Store) error {
		if _, err := tx.exec("DELETE FROM milestone_issues WHERE milestone_id = ?", id); err != nil {
			return err
		}
		var err error
		deleted, err = tx.execChanged("DELETE FROM milestones WHERE id = ?", id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting milestone %d: %w", id, err)
	}
	return deleted, nil
}
