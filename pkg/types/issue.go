package types

import "time"

// Issue status values. An issue moves open → closed → archived; the only
// reverse transitions are closed → open and archived → closed.
const (
	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusArchived = "archived"

	// StatusAll is a filter value that disables status restriction.
	StatusAll = "all"
)

// Priority values, lowest first.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Priorities lists the recognized priorities, lowest first.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Statuses lists the recognized issue statuses.
var Statuses = []string{StatusOpen, StatusClosed, StatusArchived}

var priorityWeights = map[string]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// ValidPriority reports whether p is one of the recognized priorities.
// The store accepts any string; command handlers validate with this.
func ValidPriority(p string) bool {
	_, ok := priorityWeights[p]
	return ok
}

// ValidStatus reports whether s is a recognized status. StatusAll is a
// filter value, not a status, and is rejected.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// PriorityWeight returns 1 (low) through 4 (critical), or 0 for values
// outside the enumeration.
func PriorityWeight(p string) int {
	return priorityWeights[p]
}

// Issue is a tracked work item.
type Issue struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ParentID    *int64     `json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}

// IsOpen reports whether the issue is in the open state.
func (i *Issue) IsOpen() bool {
	return i.Status == StatusOpen
}

// IsResolved reports whether the issue no longer blocks dependents, which
// holds for closed and archived issues alike.
func (i *Issue) IsResolved() bool {
	return i.Status == StatusClosed || i.Status == StatusArchived
}

// NewIssue describes one issue for batch creation. ParentIndex refers to an
// earlier element of the same batch; ParentID to an existing issue. When both
// are set ParentIndex wins.
type NewIssue struct {
	Title       string
	Description *string
	Priority    string
	ParentID    *int64
	ParentIndex *int
	Labels      []string
}

// IssueFilter selects issues for ListIssues. A nil field means no
// restriction; Status "all" also means no restriction.
type IssueFilter struct {
	Status   *string
	Label    *string
	Priority *string
}

// IssueUpdate is a partial update. Nil fields leave the column untouched.
type IssueUpdate struct {
	Title       *string
	Description *string
	Priority    *string
}

// Ptr returns a pointer to v. Handy for optional filter and update fields.
func Ptr[T any](v T) *T {
	return &v
}
