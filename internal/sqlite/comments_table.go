package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// AddComment appends a comment to an issue and returns the comment ID.
func (s *Store) AddComment(issueID int64, content string) (int64, error) {
	id, err := s.addCommentAt(issueID, content, timefmt.Now())
	if err != nil {
		return 0, fmt.Errorf("adding comment to issue %d: %w", issueID, err)
	}
	return id, nil
}

// addCommentAt inserts a comment with an explicit timestamp; import uses it
// to keep the original times.
func (s *Store) addCommentAt(issueID int64, content string, at time.Time) (int64, error) {
	return s.execInsert(
		"INSERT INTO comments (issue_id, content, created_at) VALUES (?, ?, ?)",
		issueID, content, timefmt.Format(at),
	)
}

// GetComments returns an issue's comments oldest first. Comments sharing a
// timestamp keep insertion order.
func (s *Store) GetComments(issueID int64) ([]*types.Comment, error) {
	rows, err := s.query(
		"SELECT id, issue_id, content, created_at FROM comments WHERE issue_id = ? ORDER BY created_at, id",
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting comments of issue %d: %w", issueID, err)
	}
	defer rows.Close()

	comments := []*types.Comment{}
	for rows.Next() {
		var (
			c         types.Comment
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.CreatedAt = timefmt.Parse(createdAt)
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return comments, nil
}
