package sqlite

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// ExportIssues snapshots every issue, ordered by ID, with its labels and
// comments. Each export gets a fresh UUID v7 so repeated imports of the
// same file can be told apart in logs.
func (s *Store) ExportIssues() (*types.ExportData, error) {
	exportID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating export id: %w", err)
	}

	issues, err := s.queryIssues(newSelect(issueColumns, "issues i").OrderBy("i.id"))
	if err != nil {
		return nil, fmt.Errorf("exporting issues: %w", err)
	}

	data := &types.ExportData{
		Version:    types.ExportFormatVersion,
		ExportID:   exportID.String(),
		ExportedAt: timefmt.Now(),
		Issues:     make([]types.ExportedIssue, 0, len(issues)),
	}
	for _, issue := range issues {
		labels, err := s.GetLabels(issue.ID)
		if err != nil {
			return nil, err
		}
		comments, err := s.GetComments(issue.ID)
		if err != nil {
			return nil, err
		}
		exported := types.ExportedIssue{
			ID:          issue.ID,
			Title:       issue.Title,
			Description: issue.Description,
			Status:      issue.Status,
			Priority:    issue.Priority,
			ParentID:    issue.ParentID,
			Labels:      labels,
			Comments:    make([]types.ExportedComment, 0, len(comments)),
			CreatedAt:   issue.CreatedAt,
			UpdatedAt:   issue.UpdatedAt,
			ClosedAt:    issue.ClosedAt,
		}
		for _, c := range comments {
			exported.Comments = append(exported.Comments, types.ExportedComment{
				Content:   c.Content,
				CreatedAt: c.CreatedAt,
			})
		}
		data.Issues = append(data.Issues, exported)
	}
	return data, nil
}

// ImportIssues recreates the issues of data under new IDs and returns the
// old → new ID map. The whole import is one transaction: any failure leaves
// the store as it was.
//
// Issues are created first, with labels, comments and status; parent links
// are restored in a second pass through the ID map. A parent that is not in
// the export is dropped.
func (s *Store) ImportIssues(data *types.ExportData) (map[int64]int64, error) {
	if data.Version < 0 || data.Version > types.ExportFormatVersion {
		return nil, fmt.Errorf("importing version %d: %w", data.Version, types.ErrUnsupportedExport)
	}

	idMap := make(map[int64]int64, len(data.Issues))
	err := s.inTransaction(func(tx *Store) error {
		for _, issue := range data.Issues {
			newID, err := tx.importIssue(issue)
			if err != nil {
				return fmt.Errorf("importing issue %d: %w", issue.ID, err)
			}
			idMap[issue.ID] = newID
		}

		for _, issue := range data.Issues {
			if issue.ParentID == nil {
				continue
			}
			newParent, ok := idMap[*issue.ParentID]
			if !ok {
				continue
			}
			if _, err := tx.UpdateParent(idMap[issue.ID], &newParent); err != nil {
				return fmt.Errorf("linking issue %d to parent %d: %w", issue.ID, *issue.ParentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Debug("issues imported", "path", s.path, "export_id", data.ExportID, "count", len(idMap))
	return idMap, nil
}

func (s *Store) importIssue(issue types.ExportedIssue) (int64, error) {
	id, err := s.CreateIssue(issue.Title, issue.Description, issue.Priority)
	if err != nil {
		return 0, err
	}
	for _, label := range issue.Labels {
		if _, err := s.AddLabel(id, label); err != nil {
			return 0, err
		}
	}
	for _, c := range issue.Comments {
		at := c.CreatedAt
		if at.IsZero() {
			at = timefmt.Now()
		}
		if _, err := s.addCommentAt(id, c.Content, at); err != nil {
			return 0, fmt.Errorf("adding comment: %w", err)
		}
	}

	switch issue.Status {
	case types.StatusClosed:
		_, err = s.CloseIssue(id)
	case types.StatusArchived:
		if _, err = s.CloseIssue(id); err == nil {
			_, err = s.ArchiveIssue(id)
		}
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
