package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// likeEscaper escapes the LIKE metacharacters, and the escape character
// itself, so a query matches only as literal text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a query into a substring LIKE pattern for ESCAPE '\'.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// SearchIssues returns issues whose title, description or any comment
// contains query, ignoring ASCII case, newest ID first. The empty query
// matches every issue.
func (s *Store) SearchIssues(query string) ([]*types.Issue, error) {
	pattern := likePattern(query)
	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").
		Distinct().
		Join("LEFT JOIN comments c ON c.issue_id = i.id").
		Where(`(i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\' OR c.content LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern).
		OrderBy("i.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	return issues, nil
}
