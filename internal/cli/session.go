package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start, end and inspect work sessions",
	}
	cmd.AddCommand(
		newSessionStartCmd(a),
		newSessionEndCmd(a),
		newSessionStatusCmd(a),
		newSessionWorkCmd(a),
		newSessionActionCmd(a),
		newSessionHandoffCmd(a),
	)
	return cmd
}

// currentSession returns the running session or a user error.
func currentSession(t types.Tracker) (*types.Session, error) {
	s, err := t.GetCurrentSession()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, userErrorf("no active session; run 'chainlink session start' first")
	}
	return s, nil
}

func newSessionStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a session and show the previous handoff notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			current, err := store.GetCurrentSession()
			if err != nil {
				return err
			}
			if current != nil {
				return a.emit(cmd, current, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Session #%d is already active (started %s)\n", current.ID, formatTime(current.StartedAt))
					return err
				})
			}
			last, err := store.GetLastSession()
			if err != nil {
				return err
			}
			id, err := store.StartSession()
			if err != nil {
				return err
			}
			logging.Logger.Info("session started", "id", id)
			session, err := store.GetCurrentSession()
			if err != nil {
				return err
			}
			return a.emit(cmd, session, func(w io.Writer) error {
				if last != nil && last.EndedAt != nil {
					fmt.Fprintf(w, "Previous session ended: %s\n", formatTime(*last.EndedAt))
					if notes := deref(last.HandoffNotes); notes != "" {
						fmt.Fprintf(w, "Handoff notes:\n  %s\n\n", notes)
					}
				}
				_, err := fmt.Fprintf(w, "Session #%d started.\n", id)
				return err
			})
		},
	}
}

func newSessionEndCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the current session, optionally leaving handoff notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			s, err := currentSession(store)
			if err != nil {
				return err
			}
			notes := optionalString(cmd, "notes")
			if _, err := store.EndSession(s.ID, notes); err != nil {
				return err
			}
			logging.Logger.Info("session ended", "id", s.ID)
			return a.emit(cmd, map[string]any{"id": s.ID, "handoff_notes": notes}, func(w io.Writer) error {
				fmt.Fprintf(w, "Session #%d ended.\n", s.ID)
				if notes != nil {
					fmt.Fprintln(w, "Handoff notes saved.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("notes", "n", "", "handoff notes for the next session")
	return cmd
}

// sessionStatus is the JSON shape of session status.
type sessionStatus struct {
	Session      *types.Session `json:"session"`
	ActiveIssue  *types.Issue   `json:"active_issue"`
	DurationSecs int64          `json:"duration_seconds"`
}

func newSessionStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			s, err := store.GetCurrentSession()
			if err != nil {
				return err
			}
			st := sessionStatus{Session: s}
			if s != nil {
				st.DurationSecs = int64(time.Since(s.StartedAt) / time.Second)
				if s.ActiveIssueID != nil {
					if st.ActiveIssue, err = store.GetIssue(*s.ActiveIssueID); err != nil {
						return err
					}
				}
			}
			return a.emit(cmd, st, func(w io.Writer) error {
				if s == nil {
					_, err := fmt.Fprintln(w, "No active session. Use 'chainlink session start' to begin.")
					return err
				}
				fmt.Fprintf(w, "Session #%d (started %s)\n", s.ID, formatTime(s.StartedAt))
				switch {
				case st.ActiveIssue != nil:
					fmt.Fprintf(w, "Working on: #%d %s\n", st.ActiveIssue.ID, st.ActiveIssue.Title)
				default:
					fmt.Fprintln(w, "Working on: (none)")
				}
				if s.LastAction != nil {
					fmt.Fprintf(w, "Last action: %s\n", *s.LastAction)
				}
				_, err := fmt.Fprintf(w, "Duration: %s\n", formatDuration(time.Duration(st.DurationSecs)*time.Second))
				return err
			})
		},
	}
}

func newSessionWorkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "work <id>",
		Short: "Set the issue the current session is working on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			s, err := currentSession(store)
			if err != nil {
				return err
			}
			issue, err := requireIssue(store, id)
			if err != nil {
				return err
			}
			if _, err := store.SetSessionIssue(s.ID, id); err != nil {
				return err
			}
			return a.emit(cmd, map[string]int64{"session_id": s.ID, "active_issue_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Now working on: #%d %s\n", issue.ID, issue.Title)
				return err
			})
		},
	}
}

func newSessionActionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "action <text>",
		Short: "Record what you are doing; also comments on the active issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			store, err := a.open()
			if err != nil {
				return err
			}
			err = store.RunInTransaction(func(tx types.Tracker) error {
				s, err := currentSession(tx)
				if err != nil {
					return err
				}
				if _, err := tx.SetSessionAction(s.ID, text); err != nil {
					return err
				}
				if s.ActiveIssueID == nil {
					return nil
				}
				_, err = tx.AddComment(*s.ActiveIssueID, "[action] "+text)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"last_action": text}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Action recorded: %s\n", text)
				return err
			})
		},
	}
}

func newSessionHandoffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "handoff",
		Short: "Print the handoff notes of the last ended session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			last, err := store.GetLastSession()
			if err != nil {
				return err
			}
			return a.emit(cmd, last, func(w io.Writer) error {
				switch {
				case last == nil:
					_, err := fmt.Fprintln(w, "No previous session found.")
					return err
				case deref(last.HandoffNotes) == "":
					_, err := fmt.Fprintln(w, "No previous handoff notes.")
					return err
				}
				_, err := fmt.Fprintln(w, *last.HandoffNotes)
				return err
			})
		},
	}
}
