package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error   { return &exitError{code: exitUserError, err: err} }
func systemError(err error) error { return &exitError{code: exitSysError, err: err} }

// userErrorf formats a user error.
func userErrorf(format string, args ...any) error {
	return userError(fmt.Errorf(format, args...))
}

// exitCode maps err to a process exit code. Store sentinels that describe
// bad input are user errors; everything else is a system error.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrIntegrity),
		errors.Is(err, types.ErrUnsupportedExport),
		errors.Is(err, types.ErrInvalidParentIndex):
		return exitUserError
	}
	// Flag and argument parsing errors from cobra.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "arg(s)") ||
		strings.HasPrefix(msg, "invalid argument") ||
		strings.HasPrefix(msg, "required flag") {
		return exitUserError
	}
	return exitSysError
}

// parseID parses an issue or milestone id argument. A leading '#' is
// accepted.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, userErrorf("invalid id %q", s)
	}
	return id, nil
}

// parseIDs parses every argument with parseID.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// checkPriority validates a priority flag value.
func checkPriority(p string) error {
	if !types.ValidPriority(p) {
		return userErrorf("invalid priority %q (want one of %s)", p, strings.Join(types.Priorities, ", "))
	}
	return nil
}

// optionalString returns a pointer to the flag value when the flag was set.
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// requireIssue loads an issue and turns a missing row into a user error.
func requireIssue(t types.Tracker, id int64) (*types.Issue, error) {
	issue, err := t.GetIssue(id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, userErrorf("issue #%d: %w", id, types.ErrNotFound)
	}
	return issue, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return systemError(fmt.Errorf("marshal JSON: %w", err))
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// emit writes v as JSON in --json mode and otherwise calls text.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(cmd.OutOrStdout())
}

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func colorPriority(p string) string {
	switch p {
	case types.PriorityCritical:
		return red(p)
	case types.PriorityHigh:
		return yellow(p)
	case types.PriorityLow:
		return faint(p)
	}
	return p
}

func colorStatus(s string) string {
	switch s {
	case types.StatusOpen:
		return green(s)
	case types.StatusArchived:
		return faint(s)
	}
	return s
}

// printIssueTable writes issues as an aligned table.
func printIssueTable(w io.Writer, issues []*types.Issue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "No issues found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTITLE")
	for _, i := range issues {
		title := i.Title
		if i.ParentID != nil {
			title = fmt.Sprintf("%s %s", title, faint(fmt.Sprintf("(sub of #%d)", *i.ParentID)))
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\n", i.ID, colorStatus(i.Status), colorPriority(i.Priority), title)
	}
	return tw.Flush()
}

// formatDuration renders d as "1h02m03s" style text with whole seconds.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
