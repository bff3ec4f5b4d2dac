package types

import "time"

// ExportFormatVersion is written into every export and checked on import.
const ExportFormatVersion = 1

// ExportData is the external representation of a tracker's issues.
type ExportData struct {
	Version    int             `json:"version"`
	ExportID   string          `json:"export_id,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Issues     []ExportedIssue `json:"issues"`
}

// ExportedIssue is one issue in an export, carrying its labels and comments.
type ExportedIssue struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	ParentID    *int64            `json:"parent_id,omitempty"`
	Labels      []string          `json:"labels"`
	Comments    []ExportedComment `json:"comments"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`
}

// ExportedComment is a comment inside an ExportedIssue.
type ExportedComment struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
