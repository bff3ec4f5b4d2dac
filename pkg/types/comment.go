package types

import "time"

// Comment is an append-only note on an issue.
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   int64     `json:"issue_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Relation is an undirected link between two issues, stored with the
// smaller ID first.
type Relation struct {
	IssueID1  int64     `json:"issue_id_1"`
	IssueID2  int64     `json:"issue_id_2"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalPair orders two issue IDs the way relations are stored.
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Dependency is a directed edge: BlockerID must resolve before BlockedID is
// ready.
type Dependency struct {
	BlockerID int64 `json:"blocker_id"`
	BlockedID int64 `json:"blocked_id"`
}
