package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newMilestoneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestone",
		Aliases: []string{"ms"},
		Short:   "Group issues into milestones",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			id, err := store.CreateMilestone(args[0], optionalString(cmd, "description"))
			if err != nil {
				return err
			}
			m, err := store.GetMilestone(id)
			if err != nil {
				return err
			}
			return a.emit(cmd, m, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created milestone #%d %s\n", id, args[0])
				return err
			})
		},
	}
	create.Flags().StringP("description", "d", "", "milestone description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List milestones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := optionalString(cmd, "status")
			store, err := a.open()
			if err != nil {
				return err
			}
			ms, err := store.ListMilestones(status)
			if err != nil {
				return err
			}
			return a.emit(cmd, ms, func(w io.Writer) error {
				if len(ms) == 0 {
					_, err := fmt.Fprintln(w, "No milestones.")
					return err
				}
				for _, m := range ms {
					issues, err := store.GetMilestoneIssues(m.ID)
					if err != nil {
						return err
					}
					done := 0
					for _, i := range issues {
						if i.IsResolved() {
							done++
						}
					}
					fmt.Fprintf(w, "#%d %s [%s] %d/%d done\n", m.ID, m.Name, colorStatus(m.Status), done, len(issues))
				}
				return nil
			})
		},
	}
	list.Flags().StringP("status", "s", types.MilestoneOpen, "status: open, closed or all")

	cmd.AddCommand(
		create,
		list,
		newMilestoneShowCmd(a),
		milestoneMemberCmd(a, "add", "Add issues to a milestone", func(t types.Tracker, mid, id int64) (bool, error) {
			return t.AddIssueToMilestone(mid, id)
		}),
		milestoneMemberCmd(a, "remove", "Remove issues from a milestone", func(t types.Tracker, mid, id int64) (bool, error) {
			return t.RemoveIssueFromMilestone(mid, id)
		}),
		milestoneIDCmd(a, "close", "Close a milestone", "Closed", func(t types.Tracker, id int64) (bool, error) {
			return t.CloseMilestone(id)
		}),
		milestoneIDCmd(a, "delete", "Delete a milestone; its issues are kept", "Deleted", func(t types.Tracker, id int64) (bool, error) {
			return t.DeleteMilestone(id)
		}),
	)
	return cmd
}

// milestoneDetail is the JSON shape of milestone show.
type milestoneDetail struct {
	*types.Milestone
	Issues []*types.Issue `json:"issues"`
}

func newMilestoneShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a milestone and its issues",
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
			m, err := requireMilestone(store, id)
			if err != nil {
				return err
			}
			issues, err := store.GetMilestoneIssues(id)
			if err != nil {
				return err
			}
			d := milestoneDetail{Milestone: m, Issues: issues}
			return a.emit(cmd, d, func(w io.Writer) error {
				fmt.Fprintf(w, "%s %s [%s]\n", cyan(fmt.Sprintf("#%d", m.ID)), m.Name, colorStatus(m.Status))
				if desc := deref(m.Description); desc != "" {
					fmt.Fprintf(w, "%s\n", desc)
				}
				fmt.Fprintln(w)
				return printIssueTable(w, issues)
			})
		},
	}
}

func requireMilestone(t types.Tracker, id int64) (*types.Milestone, error) {
	m, err := t.GetMilestone(id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, userErrorf("milestone #%d: %w", id, types.ErrNotFound)
	}
	return m, nil
}

func milestoneMemberCmd(a *app, use, short string, apply func(t types.Tracker, mid, id int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <milestone-id> <issue-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			mid, issueIDs := ids[0], ids[1:]
			store, err := a.open()
			if err != nil {
				return err
			}
			err = store.RunInTransaction(func(tx types.Tracker) error {
				if _, err := requireMilestone(tx, mid); err != nil {
					return err
				}
				for _, id := range issueIDs {
					if _, err := requireIssue(tx, id); err != nil {
						return err
					}
					if _, err := apply(tx, mid, id); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]any{"milestone_id": mid, "issue_ids": issueIDs}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Milestone #%d: %s %s\n", mid, use, idList(issueIDs))
				return err
			})
		},
	}
}

func milestoneIDCmd(a *app, use, short, verb string, apply func(types.Tracker, int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
			changed, err := apply(store, id)
			if err != nil {
				return err
			}
			if !changed {
				return userErrorf("milestone #%d: %w", id, types.ErrNotFound)
			}
			return a.emit(cmd, map[string]int64{"id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s milestone #%d\n", verb, id)
				return err
			})
		},
	}
}
