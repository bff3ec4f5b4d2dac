package types

import "time"

// Tracker is the persistence surface used by command handlers. The SQLite
// store implements it, and so does the transaction-bound view handed to
// RunInTransaction callbacks.
//
// Single-row reads return (nil, nil) when the row is absent. Mutations that
// may be no-ops report whether anything changed instead of failing.
type Tracker interface {
	// Issues.
	CreateIssue(title string, description *string, priority string) (int64, error)
	CreateSubissue(parentID int64, title string, description *string, priority string) (int64, error)
	CreateIssues(batch []NewIssue) ([]int64, error)
	GetIssue(id int64) (*Issue, error)
	RequireIssue(id int64) (*Issue, error)
	GetSubissues(parentID int64) ([]*Issue, error)
	ListIssues(filter IssueFilter) ([]*Issue, error)
	UpdateIssue(id int64, update IssueUpdate) (bool, error)
	UpdateParent(id int64, parentID *int64) (bool, error)
	SearchIssues(query string) ([]*Issue, error)

	// Lifecycle.
	CloseIssue(id int64) (bool, error)
	ReopenIssue(id int64) (bool, error)
	ArchiveIssue(id int64) (bool, error)
	UnarchiveIssue(id int64) (bool, error)
	ListArchivedIssues() ([]*Issue, error)
	ArchiveOlderThan(days int) (int64, error)
	ArchiveClosedBefore(cutoff time.Time) (int64, error)
	DeleteIssue(id int64) (bool, error)

	// Labels and comments.
	AddLabel(issueID int64, label string) (bool, error)
	RemoveLabel(issueID int64, label string) (bool, error)
	GetLabels(issueID int64) ([]string, error)
	AddComment(issueID int64, content string) (int64, error)
	GetComments(issueID int64) ([]*Comment, error)

	// Dependencies.
	AddDependency(blockedID, blockerID int64) (bool, error)
	RemoveDependency(blockedID, blockerID int64) (bool, error)
	GetBlockers(issueID int64) ([]int64, error)
	GetBlocking(issueID int64) ([]int64, error)
	TransitivelyBlocked(issueID int64) ([]int64, error)
	ListReadyIssues() ([]*Issue, error)
	ListBlockedIssues() ([]*Issue, error)

	// Relations.
	AddRelation(issueID1, issueID2 int64) (bool, error)
	RemoveRelation(issueID1, issueID2 int64) (bool, error)
	GetRelatedIssues(issueID int64) ([]*Issue, error)

	// Sessions.
	StartSession() (int64, error)
	EndSession(id int64, notes *string) (bool, error)
	GetCurrentSession() (*Session, error)
	GetLastSession() (*Session, error)
	SetSessionIssue(sessionID, issueID int64) (bool, error)
	SetSessionAction(sessionID int64, action string) (bool, error)

	// Milestones.
	CreateMilestone(name string, description *string) (int64, error)
	GetMilestone(id int64) (*Milestone, error)
	ListMilestones(status *string) ([]*Milestone, error)
	AddIssueToMilestone(milestoneID, issueID int64) (bool, error)
	RemoveIssueFromMilestone(milestoneID, issueID int64) (bool, error)
	GetMilestoneIssues(milestoneID int64) ([]*Issue, error)
	GetIssueMilestone(issueID int64) (*Milestone, error)
	CloseMilestone(id int64) (bool, error)
	DeleteMilestone(id int64) (bool, error)

	// Time tracking.
	StartTimer(issueID int64) (int64, error)
	StopTimer(issueID int64) (bool, error)
	GetActiveTimer() (*TimeEntry, error)
	GetTotalTime(issueID int64) (time.Duration, error)
	ListTimeEntries(issueID int64) ([]*TimeEntry, error)

	// Recommendation.
	RecommendNext() (*Recommendation, error)

	// Import and export.
	ExportIssues() (*ExportData, error)
	ImportIssues(data *ExportData) (map[int64]int64, error)

	// RunInTransaction runs fn atomically. fn must use the Tracker it is
	// given, not the outer one. An error from fn rolls everything back and
	// is returned unchanged.
	RunInTransaction(fn func(tx Tracker) error) error
}

// Handle is an open Tracker that owns its storage. Close releases it;
// every call after Close fails with ErrStoreClosed.
type Handle interface {
	Tracker
	Path() string
	Close() error
}
