package types

import "time"

// Milestone status values.
const (
	MilestoneOpen   = "open"
	MilestoneClosed = "closed"
)

// Milestone groups issues toward a goal. Membership is many-to-many.
type Milestone struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}
