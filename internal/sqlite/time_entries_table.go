package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

const timeEntryColumns = "id, issue_id, started_at, ended_at, duration_seconds"

func scanTimeEntry(row rowScanner) (*types.TimeEntry, error) {
	var (
		e         types.TimeEntry
		startedAt string
		endedAt   sql.NullString
		duration  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.IssueID, &startedAt, &endedAt, &duration); err != nil {
		return nil, err
	}
	e.StartedAt = timefmt.Parse(startedAt)
	e.EndedAt = timefmt.ParseOptional(nullString(endedAt))
	e.DurationSeconds = nullInt64(duration)
	return &e, nil
}

// StartTimer opens a running time entry on an issue and returns its ID.
func (s *Store) StartTimer(issueID int64) (int64, error) {
	id, err := s.execInsert(
		"INSERT INTO time_entries (issue_id, started_at) VALUES (?, ?)",
		issueID, timefmt.Format(timefmt.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("starting timer on issue %d: %w", issueID, err)
	}
	return id, nil
}

// StopTimer closes the running entries of an issue, recording whole-second
// durations. It reports false when no timer was running.
func (s *Store) StopTimer(issueID int64) (bool, error) {
	var stopped bool
	err := s.inTransaction(func(tx *Store) error {
		entries, err := tx.listTimeEntries(newSelect(timeEntryColumns, "time_entries").
			Where("issue_id = ?", issueID).
			Where("ended_at IS NULL"))
		if err != nil {
			return err
		}
		now := timefmt.Now()
		for _, e := range entries {
			seconds := int64(now.Sub(e.StartedAt) / time.Second)
			if seconds < 0 {
				seconds = 0
			}
			if _, err := tx.exec(
				"UPDATE time_entries SET ended_at = ?, duration_seconds = ? WHERE id = ?",
				timefmt.Format(now), seconds, e.ID,
			); err != nil {
				return err
			}
			stopped = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("stopping timer on issue %d: %w", issueID, err)
	}
	return stopped, nil
}

// GetActiveTimer returns the newest running entry across all issues, or nil.
func (s *Store) GetActiveTimer() (*types.TimeEntry, error) {
	query, args := newSelect(timeEntryColumns, "time_entries").
		Where("ended_at IS NULL").OrderBy("id DESC").Limit(1).SQL()
	e, err := scanTimeEntry(s.queryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active timer: %w", err)
	}
	return e, nil
}

// GetTotalTime sums the completed entries of an issue. Running entries are
// not counted.
func (s *Store) GetTotalTime(issueID int64) (time.Duration, error) {
	var seconds int64
	err := s.queryRow(
		"SELECT COALESCE(SUM(duration_seconds), 0) FROM time_entries WHERE issue_id = ? AND duration_seconds IS NOT NULL",
		issueID,
	).Scan(&seconds)
	if err != nil {
		return 0, fmt.Errorf("totalling time on issue %d: %w", issueID, err)
	}
	return time.Duration(seconds) * time.Second, nil
}

// ListTimeEntries returns an issue's entries oldest first.
func (s *Store) ListTimeEntries(issueID int64) ([]*types.TimeEntry, error) {
	entries, err := s.listTimeEntries(newSelect(timeEntryColumns, "time_entries").
		Where("issue_id = ?", issueID).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("listing time entries of issue %d: %w", issueID, err)
	}
	return entries, nil
}

func (s *Store) listTimeEntries(b *selectBuilder) ([]*types.TimeEntry, error) {
	query, args := b.SQL()
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*types.TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
