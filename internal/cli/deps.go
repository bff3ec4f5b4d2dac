package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newBlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "block <blocked-id> <blocker-id>",
		Short: "Mark an issue as blocked by another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			blocked, blocker := ids[0], ids[1]
			store, err := a.open()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, err := requireIssue(store, id); err != nil {
					return err
				}
			}
			added, err := store.AddDependency(blocked, blocker)
			if err != nil {
				if errors.Is(err, types.ErrIntegrity) {
					return userError(err)
				}
				return err
			}
			return a.emit(cmd, map[string]any{"blocked_id": blocked, "blocker_id": blocker, "added": added}, func(w io.Writer) error {
				if !added {
					_, err := fmt.Fprintf(w, "#%d is already blocked by #%d\n", blocked, blocker)
					return err
				}
				_, err := fmt.Fprintf(w, "#%d is now blocked by #%d\n", blocked, blocker)
				return err
			})
		},
	}
}

func newUnblockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <blocked-id> <blocker-id>",
		Short: "Remove a blocking dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			removed, err := store.RemoveDependency(ids[0], ids[1])
			if err != nil {
				return err
			}
			if !removed {
				return userErrorf("#%d is not blocked by #%d", ids[0], ids[1])
			}
			return a.emit(cmd, map[string]any{"blocked_id": ids[0], "blocker_id": ids[1], "removed": true}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "#%d is no longer blocked by #%d\n", ids[0], ids[1])
				return err
			})
		},
	}
}

func newBlockedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "List open issues waiting on an open blocker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			issues, err := store.ListBlockedIssues()
			if err != nil {
				return err
			}
			return a.emit(cmd, issues, func(w io.Writer) error {
				if len(issues) == 0 {
					_, err := fmt.Fprintln(w, "No blocked issues.")
					return err
				}
				for _, i := range issues {
					blockers, err := store.GetBlockers(i.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "#%d %s %s\n", i.ID, i.Title, faint("(blocked by "+idList(blockers)+")"))
				}
				return nil
			})
		},
	}
}

func newReadyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List open issues with no open blockers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			issues, err := store.ListReadyIssues()
			if err != nil {
				return err
			}
			return a.emit(cmd, issues, func(w io.Writer) error {
				if len(issues) == 0 {
					_, err := fmt.Fprintln(w, "No ready issues.")
					return err
				}
				return printIssueTable(w, issues)
			})
		},
	}
}

func newNextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Recommend the next issue to work on",
		Long: "Next ranks ready top-level issues by priority and favors those whose\n" +
			"subissues are partly done.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			rec, err := store.RecommendNext()
			if err != nil {
				return err
			}
			return a.emit(cmd, rec, func(w io.Writer) error {
				if rec == nil {
					_, err := fmt.Fprintln(w, "Nothing is ready. Check 'chainlink blocked'.")
					return err
				}
				fmt.Fprintf(w, "Next: %s %s [%s]\n", cyan(fmt.Sprintf("#%d", rec.Issue.ID)), rec.Issue.Title, colorPriority(rec.Issue.Priority))
				if rec.HasProgress() {
					fmt.Fprintf(w, "  %d/%d subissues done\n", rec.Completed, rec.Total)
				}
				if len(rec.Alternatives) > 0 {
					fmt.Fprintln(w, "Also ready:")
					for _, alt := range rec.Alternatives {
						fmt.Fprintf(w, "  #%d %s [%s]\n", alt.Issue.ID, alt.Issue.Title, colorPriority(alt.Issue.Priority))
					}
				}
				return nil
			})
		},
	}
}

// treeNode is an issue with its subissues, for JSON tree output.
type treeNode struct {
	*types.Issue
	Children []*treeNode `json:"children"`
}

func newTreeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [id]",
		Short: "Show issues as a parent/subissue tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status != types.StatusAll && !types.ValidStatus(status) {
				return userErrorf("invalid status %q", status)
			}
			store, err := a.open()
			if err != nil {
				return err
			}

			var roots []*types.Issue
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				root, err := requireIssue(store, id)
				if err != nil {
					return err
				}
				roots = []*types.Issue{root}
			} else {
				all, err := store.ListIssues(types.IssueFilter{Status: &status})
				if err != nil {
					return err
				}
				for i := len(all) - 1; i >= 0; i-- {
					if all[i].ParentID == nil {
						roots = append(roots, all[i])
					}
				}
			}

			nodes := make([]*treeNode, 0, len(roots))
			for _, r := range roots {
				n, err := buildTree(store, r, status)
				if err != nil {
					return err
				}
				nodes = append(nodes, n)
			}
			return a.emit(cmd, nodes, func(w io.Writer) error {
				if len(nodes) == 0 {
					_, err := fmt.Fprintln(w, "No issues found.")
					return err
				}
				for _, n := range nodes {
					printTree(w, n, 0)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("status", "s", types.StatusOpen, "status of issues to include: open, closed, archived or all")
	return cmd
}

func buildTree(t types.Tracker, issue *types.Issue, status string) (*treeNode, error) {
	n := &treeNode{Issue: issue, Children: []*treeNode{}}
	subs, err := t.GetSubissues(issue.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if status != types.StatusAll && s.Status != status {
			continue
		}
		child, err := buildTree(t, s, status)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func printTree(w io.Writer, n *treeNode, depth int) {
	marker := " "
	if n.IsResolved() {
		marker = "x"
	}
	fmt.Fprintf(w, "%s[%s] #%d %s %s\n", strings.Repeat("  ", depth), marker, n.ID, n.Title, faint(n.Priority))
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}

func newRelateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relate <id> <other-id>",
		Short: "Link two related issues",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, err := requireIssue(store, id); err != nil {
					return err
				}
			}
			if _, err := store.AddRelation(ids[0], ids[1]); err != nil {
				if errors.Is(err, types.ErrIntegrity) {
					return userError(err)
				}
				return err
			}
			return a.emit(cmd, map[string]int64{"issue_id_1": ids[0], "issue_id_2": ids[1]}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Related #%d and #%d\n", ids[0], ids[1])
				return err
			})
		},
	}
}

func newUnrelateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unrelate <id> <other-id>",
		Short: "Remove the link between two issues",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			removed, err := store.RemoveRelation(ids[0], ids[1])
			if err != nil {
				return err
			}
			if !removed {
				return userErrorf("#%d and #%d are not related", ids[0], ids[1])
			}
			return a.emit(cmd, map[string]int64{"issue_id_1": ids[0], "issue_id_2": ids[1]}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Unrelated #%d and #%d\n", ids[0], ids[1])
				return err
			})
		},
	}
}

func newRelatedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "related <id>",
		Short: "List issues related to an issue",
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
			if _, err := requireIssue(store, id); err != nil {
				return err
			}
			issues, err := store.GetRelatedIssues(id)
			if err != nil {
				return err
			}
			return a.emit(cmd, issues, func(w io.Writer) error {
				return printIssueTable(w, issues)
			})
		},
	}
}
