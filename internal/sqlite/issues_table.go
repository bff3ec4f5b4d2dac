package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// issueColumns is the column list hydrated by scanIssue, qualified with the
// "i" alias so it can be used in joins.
const issueColumns = "i.id, i.title, i.description, i.status, i.priority, i.parent_id, i.created_at, i.updated_at, i.closed_at"

// scanIssue hydrates one issues row selected with issueColumns.
func scanIssue(row rowScanner) (*types.Issue, error) {
	var (
		issue       types.Issue
		description sql.NullString
		parentID    sql.NullInt64
		createdAt   string
		updatedAt   string
		closedAt    sql.NullString
	)
	if err := row.Scan(
		&issue.ID, &issue.Title, &description, &issue.Status, &issue.Priority,
		&parentID, &createdAt, &updatedAt, &closedAt,
	); err != nil {
		return nil, err
	}
	issue.Description = nullString(description)
	issue.ParentID = nullInt64(parentID)
	issue.CreatedAt = timefmt.Parse(createdAt)
	issue.UpdatedAt = timefmt.Parse(updatedAt)
	issue.ClosedAt = timefmt.ParseOptional(nullString(closedAt))
	return &issue, nil
}

// queryIssues runs a select built over "issues i" and hydrates every row.
func (s *Store) queryIssues(b *selectBuilder) ([]*types.Issue, error) {
	query, args := b.SQL()
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := []*types.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *Store) insertIssue(title string, description *string, priority string, parentID *int64) (int64, error) {
	now := timefmt.Format(timefmt.Now())
	return s.execInsert(
		`INSERT INTO issues (title, description, status, priority, parent_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, description, types.StatusOpen, priority, parentID, now, now,
	)
}

// CreateIssue inserts an open top-level issue and returns its ID.
// Priority is stored as given.
func (s *Store) CreateIssue(title string, description *string, priority string) (int64, error) {
	id, err := s.insertIssue(title, description, priority, nil)
	if err != nil {
		return 0, fmt.Errorf("creating issue: %w", err)
	}
	return id, nil
}

// CreateSubissue inserts an open issue under parentID. The parent is not
// checked here; a dangling parent fails the foreign key.
func (s *Store) CreateSubissue(parentID int64, title string, description *string, priority string) (int64, error) {
	id, err := s.insertIssue(title, description, priority, &parentID)
	if err != nil {
		return 0, fmt.Errorf("creating subissue of %d: %w", parentID, err)
	}
	return id, nil
}

// GetIssue returns the issue with the given ID, or nil if there is none.
func (s *Store) GetIssue(id int64) (*types.Issue, error) {
	query, args := newSelect(issueColumns, "issues i").Where("i.id = ?", id).SQL()
	issue, err := scanIssue(s.queryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting issue %d: %w", id, err)
	}
	return issue, nil
}

// RequireIssue is GetIssue with absence reported as types.ErrNotFound.
func (s *Store) RequireIssue(id int64) (*types.Issue, error) {
	issue, err := s.GetIssue(id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("issue %d: %w", id, types.ErrNotFound)
	}
	return issue, nil
}

// GetSubissues returns the direct children of parentID ordered by ID.
func (s *Store) GetSubissues(parentID int64) ([]*types.Issue, error) {
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Where("i.parent_id = ?", parentID).
		OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("getting subissues of %d: %w", parentID, err)
	}
	return issues, nil
}

// ListIssues returns issues matching filter, newest ID first.
func (s *Store) ListIssues(filter types.IssueFilter) ([]*types.Issue, error) {
	b := newSelect(issueColumns, "issues i").Distinct()
	if filter.Label != nil {
		b.Join("JOIN labels l ON l.issue_id = i.id").Where("l.label = ?", *filter.Label)
	}
	if filter.Status != nil && *filter.Status != types.StatusAll {
		b.Where("i.status = ?", *filter.Status)
	}
	whereOpt(b, "i.priority = ?", filter.Priority)

	issues, err := s.queryIssues(b.OrderBy("i.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	return issues, nil
}

// UpdateIssue applies the non-nil fields of update and stamps updated_at.
// It reports whether the issue exists.
func (s *Store) UpdateIssue(id int64, update types.IssueUpdate) (bool, error) {
	b := newUpdate("issues")
	setOpt(b, "title", update.Title)
	setOpt(b, "description", update.Description)
	setOpt(b, "priority", update.Priority)
	b.Set("updated_at", timefmt.Format(timefmt.Now())).Where("id = ?", id)

	query, args := b.SQL()
	ok, err := s.execChanged(query, args...)
	if err != nil {
		return false, fmt.Errorf("updating issue %d: %w", id, err)
	}
	return ok, nil
}

// UpdateParent moves an issue under parentID, or to the top level when
// parentID is nil.
func (s *Store) UpdateParent(id int64, parentID *int64) (bool, error) {
	query, args := newUpdate("issues").
		Set("parent_id", parentID).
		Set("updated_at", timefmt.Format(timefmt.Now())).
		Where("id = ?", id).
		SQL()
	ok, err := s.execChanged(query, args...)
	if err != nil {
		return false, fmt.Errorf("updating parent of issue %d: %w", id, err)
	}
	return ok, nil
}

// subissueIDs is the parent→children adjacency used by delete cascades.
func (s *Store) subissueIDs(parentID int64) ([]int64, error) {
	return s.queryIDs("SELECT id FROM issues WHERE parent_id = ? ORDER BY id", parentID)
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
