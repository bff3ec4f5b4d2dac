package types

import "time"

// Session records a stretch of work. At most one session is current
// (EndedAt == nil) at a time. ActiveIssueID is a weak reference and becomes
// nil when the issue is deleted.
type Session struct {
	ID            int64      `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	ActiveIssueID *int64     `json:"active_issue_id"`
	HandoffNotes  *string    `json:"handoff_notes"`
	LastAction    *string    `json:"last_action"`
}

// IsCurrent reports whether the session has not ended.
func (s *Session) IsCurrent() bool {
	return s.EndedAt == nil
}

// TimeEntry is one timed stretch of work on an issue. An entry with a nil
// EndedAt is running.
type TimeEntry struct {
	ID              int64      `json:"id"`
	IssueID         int64      `json:"issue_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int64     `json:"duration_seconds"`
}

// Elapsed returns the recorded duration, or the time since StartedAt for a
// running entry.
func (e *TimeEntry) Elapsed(now time.Time) time.Duration {
	if e.DurationSeconds != nil {
		return time.Duration(*e.DurationSeconds) * time.Second
	}
	return now.Sub(e.StartedAt)
}
