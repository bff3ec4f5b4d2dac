package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive closed issues or list the archive",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <id>...",
			Short: "Archive closed issues",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.archiveTransition(cmd, args, "archived", types.StatusClosed, func(t types.Tracker, id int64) (bool, error) {
					return t.ArchiveIssue(id)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>...",
			Short: "Move archived issues back to closed",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.archiveTransition(cmd, args, "unarchived", types.StatusArchived, func(t types.Tracker, id int64) (bool, error) {
					return t.UnarchiveIssue(id)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List archived issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.open()
				if err != nil {
					return err
				}
				issues, err := store.ListArchivedIssues()
				if err != nil {
					return err
				}
				return a.emit(cmd, issues, func(w io.Writer) error {
					return printIssueTable(w, issues)
				})
			},
		},
		newArchiveOlderCmd(a),
	)
	return cmd
}

// archiveTransition applies fn to every id in one transaction. Each issue
// must currently have status from.
func (a *app) archiveTransition(cmd *cobra.Command, args []string, verb, from string, fn func(types.Tracker, int64) (bool, error)) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	store, err := a.open()
	if err != nil {
		return err
	}
	err = store.RunInTransaction(func(tx types.Tracker) error {
		for _, id := range ids {
			issue, err := requireIssue(tx, id)
			if err != nil {
				return err
			}
			if issue.Status != from {
				return userErrorf("issue #%d is %s, not %s", id, issue.Status, from)
			}
			if _, err := fn(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return a.emit(cmd, map[string]any{verb: ids}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s %s\n", verb, idList(ids))
		return err
	})
}

func newArchiveOlderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "older",
		Short: "Archive issues closed before a cutoff",
		Long: "Archive every closed issue whose close time is before the cutoff.\n" +
			"Give the cutoff as --days N or as a phrase such as --before \"2 weeks ago\".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			before, _ := cmd.Flags().GetString("before")
			if cmd.Flags().Changed("days") && before != "" {
				return userErrorf("use either --days or --before, not both")
			}
			store, err := a.open()
			if err != nil {
				return err
			}

			var n int64
			switch {
			case before != "":
				cutoff, err := parseCutoff(before, time.Now())
				if err != nil {
					return err
				}
				n, err = store.ArchiveClosedBefore(cutoff)
				if err != nil {
					return err
				}
			case days > 0:
				n, err = store.ArchiveOlderThan(days)
				if err != nil {
					return err
				}
			default:
				return userErrorf("--days must be positive or --before must be given")
			}
			logging.Logger.Info("archived old issues", "count", n)
			return a.emit(cmd, map[string]int64{"archived": n}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Archived %d issue(s)\n", n)
				return err
			})
		},
	}
	cmd.Flags().Int("days", 30, "archive issues closed more than this many days ago")
	cmd.Flags().String("before", "", "archive issues closed before this time, e.g. \"last monday\"")
	return cmd
}

// parseCutoff reads an absolute date (2006-01-02) or a natural-language
// phrase relative to now.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, userErrorf("parse --before %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, userErrorf("could not understand --before %q", s)
	}
	return r.Time, nil
}
