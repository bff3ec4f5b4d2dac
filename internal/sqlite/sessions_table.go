package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/timefmt"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

const sessionColumns = "id, started_at, ended_at, active_issue_id, handoff_notes, last_action"

func scanSession(row rowScanner) (*types.Session, error) {
	var (
		sess         types.Session
		startedAt    string
		endedAt      sql.NullString
		activeIssue  sql.NullInt64
		handoffNotes sql.NullString
		lastAction   sql.NullString
	)
	if err := row.Scan(&sess.ID, &startedAt, &endedAt, &activeIssue, &handoffNotes, &lastAction); err != nil {
		return nil, err
	}
	sess.StartedAt = timefmt.Parse(startedAt)
	sess.EndedAt = timefmt.ParseOptional(nullString(endedAt))
	sess.ActiveIssueID = nullInt64(activeIssue)
	sess.HandoffNotes = nullString(handoffNotes)
	sess.LastAction = nullString(lastAction)
	return &sess, nil
}

// StartSession opens a new session and returns its ID. Ending any previous
// session is the caller's job.
func (s *Store) StartSession() (int64, error) {
	id, err := s.execInsert("INSERT INTO sessions (started_at) VALUES (?)", timefmt.Format(timefmt.Now()))
	if err != nil {
		return 0, fmt.Errorf("starting session: %w", err)
	}
	return id, nil
}

// EndSession stamps ended_at and stores the handoff notes, which may be nil.
func (s *Store) EndSession(id int64, notes *string) (bool, error) {
	ok, err := s.execChanged(
		"UPDATE sessions SET ended_at = ?, handoff_notes = ? WHERE id = ?",
		timefmt.Format(timefmt.Now()), notes, id,
	)
	if err != nil {
		return false, fmt.Errorf("ending session %d: %w", id, err)
	}
	return ok, nil
}

// GetCurrentSession returns the newest unended session, or nil.
func (s *Store) GetCurrentSession() (*types.Session, error) {
	sess, err := s.getSession(newSelect(sessionColumns, "sessions").
		Where("ended_at IS NULL").OrderBy("id DESC").Limit(1))
	if err != nil {
		return nil, fmt.Errorf("getting current session: %w", err)
	}
	return sess, nil
}

// GetLastSession returns the most recently ended session, or nil. Its
// handoff notes are what the next session picks up.
func (s *Store) GetLastSession() (*types.Session, error) {
	sess, err := s.getSession(newSelect(sessionColumns, "sessions").
		Where("ended_at IS NOT NULL").OrderBy("id DESC").Limit(1))
	if err != nil {
		return nil, fmt.Errorf("getting last session: %w", err)
	}
	return sess, nil
}

func (s *Store) getSession(b *selectBuilder) (*types.Session, error) {
	query, args := b.SQL()
	sess, err := scanSession(s.queryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// SetSessionIssue records the issue a session is working on.
func (s *Store) SetSessionIssue(sessionID, issueID int64) (bool, error) {
	ok, err := s.execChanged("UPDATE sessions SET active_issue_id = ? WHERE id = ?", issueID, sessionID)
	if err != nil {
		return false, fmt.Errorf("setting issue of session %d: %w", sessionID, err)
	}
	return ok, nil
}

// SetSessionAction records the last thing done in a session, so it can be
// recovered after an interruption.
func (s *Store) SetSessionAction(sessionID int64, action string) (bool, error) {
	ok, err := s.execChanged("UPDATE sessions SET last_action = ? WHERE id = ?", action, sessionID)
	if err != nil {
		return false, fmt.Errorf("setting action of session %d: %w", sessionID, err)
	}
	return ok, nil
}
