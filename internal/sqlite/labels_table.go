package sqlite

import (
	"fmt"
)

// AddLabel attaches label to an issue. It reports false when the label was
// already present.
func (s *Store) AddLabel(issueID int64, label string) (bool, error) {
	ok, err := s.execChanged("INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)", issueID, label)
	if err != nil {
		return false, fmt.Errorf("adding label to issue %d: %w", issueID, err)
	}
	return ok, nil
}

// RemoveLabel detaches label from an issue and reports whether it was
// present.
func (s *Store) RemoveLabel(issueID int64, label string) (bool, error) {
	ok, err := s.execChanged("DELETE FROM labels WHERE issue_id = ? AND label = ?", issueID, label)
	if err != nil {
		return false, fmt.Errorf("removing label from issue %d: %w", issueID, err)
	}
	return ok, nil
}

// GetLabels returns an issue's labels in sorted order.
func (s *Store) GetLabels(issueID int64) ([]string, error) {
	rows, err := s.query("SELECT label FROM labels WHERE issue_id = ? ORDER BY label", issueID)
	if err != nil {
		return nil, fmt.Errorf("getting labels of issue %d: %w", issueID, err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating labels: %w", err)
	}
	return labels, nil
}
