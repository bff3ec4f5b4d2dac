package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func newCreateCmd(a *app) *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createIssue(cmd, nil, args[0], labels)
		},
	}
	cmd.Flags().StringP("description", "d", "", "issue description")
	cmd.Flags().StringP("priority", "p", "", "priority: low, medium, high or critical")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "label to attach (repeatable)")
	return cmd
}

func newSubissueCmd(a *app) *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "subissue <parent-id> <title>",
		Short: "Create an issue under a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.createIssue(cmd, &parentID, args[1], labels)
		},
	}
	cmd.Flags().StringP("description", "d", "", "issue description")
	cmd.Flags().StringP("priority", "p", "", "priority: low, medium, high or critical")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "label to attach (repeatable)")
	return cmd
}

// createIssue creates one issue with its labels in a single transaction.
func (a *app) createIssue(cmd *cobra.Command, parentID *int64, title string, labels []string) error {
	priority, _ := cmd.Flags().GetString("priority")
	if priority == "" {
		priority = a.defaultPriority()
	}
	if err := checkPriority(priority); err != nil {
		return err
	}
	store, err := a.open()
	if err != nil {
		return err
	}
	if parentID != nil {
		if _, err := requireIssue(store, *parentID); err != nil {
			return err
		}
	}

	ids, err := store.CreateIssues([]types.NewIssue{{
		Title:       title,
		Description: optionalString(cmd, "description"),
		Priority:    priority,
		ParentID:    parentID,
		Labels:      labels,
	}})
	if err != nil {
		return err
	}
	id := ids[0]
	logging.Logger.Debug("issue created", "id", id, "parent_id", parentID)

	issue, err := store.GetIssue(id)
	if err != nil {
		return err
	}
	return a.emit(cmd, issue, func(w io.Writer) error {
		if parentID != nil {
			_, err := fmt.Fprintf(w, "Created subissue #%d under #%d\n", id, *parentID)
			return err
		}
		_, err := fmt.Fprintf(w, "Created issue #%d\n", id)
		return err
	})
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long:  "List issues, newest first. By default only open issues are shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status != types.StatusAll && !types.ValidStatus(status) {
				return userErrorf("invalid status %q", status)
			}
			filter := types.IssueFilter{
				Status: &status,
				Label:  optionalString(cmd, "label"),
			}
			if p := optionalString(cmd, "priority"); p != nil {
				if err := checkPriority(*p); err != nil {
					return err
				}
				filter.Priority = p
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			issues, err := store.ListIssues(filter)
			if err != nil {
				return err
			}
			return a.emit(cmd, issues, func(w io.Writer) error {
				return printIssueTable(w, issues)
			})
		},
	}
	cmd.Flags().StringP("status", "s", types.StatusOpen, "status: open, closed, archived or all")
	cmd.Flags().StringP("label", "l", "", "only issues with this label")
	cmd.Flags().StringP("priority", "p", "", "only issues with this priority")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, descriptions and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}
			issues, err := store.SearchIssues(args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd, issues, func(w io.Writer) error {
				return printIssueTable(w, issues)
			})
		},
	}
}

// issueDetail is the full view printed by show.
type issueDetail struct {
	*types.Issue
	Labels       []string         `json:"labels"`
	Comments     []*types.Comment `json:"comments"`
	BlockedBy    []int64          `json:"blocked_by"`
	Blocking     []int64          `json:"blocking"`
	Related      []int64          `json:"related"`
	Subissues    []*types.Issue   `json:"subissues"`
	Milestone    *types.Milestone `json:"milestone"`
	TotalSeconds int64            `json:"total_seconds"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an issue with labels, comments and links",
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
			d, err := loadIssueDetail(store, id)
			if err != nil {
				return err
			}
			return a.emit(cmd, d, func(w io.Writer) error {
				return printIssueDetail(w, d)
			})
		},
	}
}

func loadIssueDetail(t types.Tracker, id int64) (*issueDetail, error) {
	issue, err := requireIssue(t, id)
	if err != nil {
		return nil, err
	}
	d := &issueDetail{Issue: issue}
	if d.Labels, err = t.GetLabels(id); err != nil {
		return nil, err
	}
	if d.Comments, err = t.GetComments(id); err != nil {
		return nil, err
	}
	if d.BlockedBy, err = t.GetBlockers(id); err != nil {
		return nil, err
	}
	if d.Blocking, err = t.GetBlocking(id); err != nil {
		return nil, err
	}
	related, err := t.GetRelatedIssues(id)
	if err != nil {
		return nil, err
	}
	d.Related = make([]int64, 0, len(related))
	for _, r := range related {
		d.Related = append(d.Related, r.ID)
	}
	if d.Subissues, err = t.GetSubissues(id); err != nil {
		return nil, err
	}
	if d.Milestone, err = t.GetIssueMilestone(id); err != nil {
		return nil, err
	}
	total, err := t.GetTotalTime(id)
	if err != nil {
		return nil, err
	}
	d.TotalSeconds = int64(total / time.Second)
	return d, nil
}

func printIssueDetail(w io.Writer, d *issueDetail) error {
	fmt.Fprintf(w, "%s %s\n", cyan(fmt.Sprintf("#%d", d.ID)), d.Title)
	fmt.Fprintf(w, "Status:   %s\n", colorStatus(d.Status))
	fmt.Fprintf(w, "Priority: %s\n", colorPriority(d.Priority))
	if d.ParentID != nil {
		fmt.Fprintf(w, "Parent:   #%d\n", *d.ParentID)
	}
	fmt.Fprintf(w, "Created:  %s\n", formatTime(d.CreatedAt))
	fmt.Fprintf(w, "Updated:  %s\n", formatTime(d.UpdatedAt))
	if d.ClosedAt != nil {
		fmt.Fprintf(w, "Closed:   %s\n", formatTime(*d.ClosedAt))
	}
	if len(d.Labels) > 0 {
		fmt.Fprintf(w, "Labels:   %s\n", strings.Join(d.Labels, ", "))
	}
	if d.Milestone != nil {
		fmt.Fprintf(w, "Milestone: #%d %s\n", d.Milestone.ID, d.Milestone.Name)
	}
	if len(d.BlockedBy) > 0 {
		fmt.Fprintf(w, "Blocked by: %s\n", idList(d.BlockedBy))
	}
	if len(d.Blocking) > 0 {
		fmt.Fprintf(w, "Blocking:   %s\n", idList(d.Blocking))
	}
	if len(d.Related) > 0 {
		fmt.Fprintf(w, "Related:    %s\n", idList(d.Related))
	}
	if d.TotalSeconds > 0 {
		fmt.Fprintf(w, "Time spent: %s\n", formatDuration(time.Duration(d.TotalSeconds)*time.Second))
	}
	if d.Description != nil && *d.Description != "" {
		fmt.Fprintf(w, "\n%s\n", *d.Description)
	}
	if len(d.Subissues) > 0 {
		fmt.Fprintln(w, "\nSubissues:")
		for _, s := range d.Subissues {
			fmt.Fprintf(w, "  #%d [%s] %s\n", s.ID, colorStatus(s.Status), s.Title)
		}
	}
	if len(d.Comments) > 0 {
		fmt.Fprintln(w, "\nComments:")
		for _, c := range d.Comments {
			fmt.Fprintf(w, "  %s  %s\n", faint(formatTime(c.CreatedAt)), c.Content)
		}
	}
	return nil
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}

func newUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an issue's title, description or priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			update := types.IssueUpdate{
				Title:       optionalString(cmd, "title"),
				Description: optionalString(cmd, "description"),
				Priority:    optionalString(cmd, "priority"),
			}
			if update.Title == nil && update.Description == nil && update.Priority == nil {
				return userErrorf("nothing to update: pass --title, --description or --priority")
			}
			if update.Priority != nil {
				if err := checkPriority(*update.Priority); err != nil {
					return err
				}
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			if _, err := requireIssue(store, id); err != nil {
				return err
			}
			if _, err := store.UpdateIssue(id, update); err != nil {
				return err
			}
			if cmd.Flags().Changed("parent") {
				var parent *int64
				if raw, _ := cmd.Flags().GetString("parent"); raw != "" && raw != "none" {
					p, err := parseID(raw)
					if err != nil {
						return err
					}
					if p == id {
						return userErrorf("issue #%d cannot be its own parent", id)
					}
					if _, err := requireIssue(store, p); err != nil {
						return err
					}
					parent = &p
				}
				if _, err := store.UpdateParent(id, parent); err != nil {
					return err
				}
			}
			issue, err := store.GetIssue(id)
			if err != nil {
				return err
			}
			return a.emit(cmd, issue, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Updated issue #%d\n", id)
				return err
			})
		},
	}
	cmd.Flags().StringP("title", "t", "", "new title")
	cmd.Flags().StringP("description", "d", "", "new description")
	cmd.Flags().StringP("priority", "p", "", "new priority")
	cmd.Flags().String("parent", "", "new parent id, or \"none\" to detach")
	return cmd
}

// statusCmd builds close and reopen, which share their shape.
func statusCmd(a *app, use, short, verb string, apply func(types.Tracker, int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
					if _, err := requireIssue(tx, id); err != nil {
						return err
					}
					if _, err := apply(tx, id); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]any{verb: ids}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s\n", strings.ToUpper(verb[:1])+verb[1:], idList(ids))
				return err
			})
		},
	}
}

func newCloseCmd(a *app) *cobra.Command {
	return statusCmd(a, "close", "Close issues", "closed", func(t types.Tracker, id int64) (bool, error) {
		return t.CloseIssue(id)
	})
}

func newReopenCmd(a *app) *cobra.Command {
	return statusCmd(a, "reopen", "Reopen closed issues", "reopened", func(t types.Tracker, id int64) (bool, error) {
		issue, err := t.GetIssue(id)
		if err != nil {
			return false, err
		}
		if issue.Status == types.StatusArchived {
			return false, userErrorf("issue #%d is archived; unarchive it first", id)
		}
		return t.ReopenIssue(id)
	})
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an issue, its subissues and everything attached to them",
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
			deleted, err := store.DeleteIssue(id)
			if err != nil {
				return err
			}
			if !deleted {
				return userErrorf("issue #%d: %w", id, types.ErrNotFound)
			}
			logging.Logger.Info("issue deleted", "id", id)
			return a.emit(cmd, map[string]int64{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted issue #%d\n", id)
				return err
			})
		},
	}
}

func newCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Add a comment to an issue",
		Args:  cobra.ExactArgs(2),
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
			cid, err := store.AddComment(id, args[1])
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]int64{"id": cid, "issue_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added comment to #%d\n", id)
				return err
			})
		},
	}
}

func newLabelCmd(a *app) *cobra.Command {
	return labelCmd(a, "label", "Attach labels to an issue", func(t types.Tracker, id int64, l string) (bool, error) {
		return t.AddLabel(id, l)
	})
}

func newUnlabelCmd(a *app) *cobra.Command {
	return labelCmd(a, "unlabel", "Remove labels from an issue", func(t types.Tracker, id int64, l string) (bool, error) {
		return t.RemoveLabel(id, l)
	})
}

func labelCmd(a *app, use, short string, apply func(types.Tracker, int64, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <label>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			var labels []string
			err = store.RunInTransaction(func(tx types.Tracker) error {
				if _, err := requireIssue(tx, id); err != nil {
					return err
				}
				for _, l := range args[1:] {
					if _, err := apply(tx, id, l); err != nil {
						return err
					}
				}
				labels, err = tx.GetLabels(id)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]any{"id": id, "labels": labels}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "#%d labels: %s\n", id, strings.Join(labels, ", "))
				return err
			})
		},
	}
}
