package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a timer on an issue",
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
			var entryID int64
			err = store.RunInTransaction(func(tx types.Tracker) error {
				if _, err := requireIssue(tx, id); err != nil {
					return err
				}
				active, err := tx.GetActiveTimer()
				if err != nil {
					return err
				}
				if active != nil {
					return userErrorf("timer already running on #%d; run 'chainlink stop' first", active.IssueID)
				}
				entryID, err = tx.StartTimer(id)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]int64{"id": entryID, "issue_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Timer started on #%d\n", id)
				return err
			})
		},
	}
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			active, err := store.GetActiveTimer()
			if err != nil {
				return err
			}
			if active == nil {
				return userErrorf("no timer is running")
			}
			if _, err := store.StopTimer(active.IssueID); err != nil {
				return err
			}
			elapsed := active.Elapsed(time.Now())
			return a.emit(cmd, map[string]int64{"issue_id": active.IssueID, "duration_seconds": int64(elapsed / time.Second)}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Timer stopped on #%d after %s\n", active.IssueID, formatDuration(elapsed))
				return err
			})
		},
	}
}

// timerStatus is the JSON shape of the timer command.
type timerStatus struct {
	Entry        *types.TimeEntry `json:"entry"`
	ElapsedSecs  int64            `json:"elapsed_seconds"`
	TotalSeconds int64            `json:"total_seconds"`
}

func newTimerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timer",
		Short: "Show the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			active, err := store.GetActiveTimer()
			if err != nil {
				return err
			}
			st := timerStatus{Entry: active}
			if active != nil {
				st.ElapsedSecs = int64(active.Elapsed(time.Now()) / time.Second)
				total, err := store.GetTotalTime(active.IssueID)
				if err != nil {
					return err
				}
				st.TotalSeconds = int64(total / time.Second)
			}
			return a.emit(cmd, st, func(w io.Writer) error {
				if active == nil {
					_, err := fmt.Fprintln(w, "No timer running.")
					return err
				}
				_, err := fmt.Fprintf(w, "Timer on #%d: %s (total recorded %s)\n", active.IssueID,
					formatDuration(time.Duration(st.ElapsedSecs)*time.Second),
					formatDuration(time.Duration(st.TotalSeconds)*time.Second))
				return err
			})
		},
	}
}
