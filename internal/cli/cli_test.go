package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// workspace is a tracker directory driven through run.
type workspace struct {
	t   *testing.T
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := &workspace{t: t, dir: t.TempDir()}
	w.ok("init")
	return w
}

// exec runs one command line against the workspace.
func (w *workspace) exec(args ...string) (string, string, int) {
	w.t.Helper()
	full := append(append([]string{}, args...), "--config-dir", w.dir, "--data-dir", w.dir)
	var stdout, stderr bytes.Buffer
	code := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// ok runs a command that must succeed and returns its stdout.
func (w *workspace) ok(args ...string) string {
	w.t.Helper()
	out, errOut, code := w.exec(args...)
	require.Equal(w.t, exitSuccess, code, "chainlink %s: %s", strings.Join(args, " "), errOut)
	return out
}

// okJSON runs a command with --json and decodes its output into v.
func (w *workspace) okJSON(v any, args ...string) {
	w.t.Helper()
	out := w.ok(append(args, "--json")...)
	require.NoError(w.t, json.Unmarshal([]byte(out), v), out)
}

func (w *workspace) create(title string, extra ...string) int64 {
	w.t.Helper()
	var issue types.Issue
	w.okJSON(&issue, append([]string{"create", title}, extra...)...)
	return issue.ID
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"version"}, &stdout, &stderr)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout.String(), "chainlink "+Version)
}

func TestInit(t *testing.T) {
	w := newWorkspace(t)
	assert.FileExists(t, filepath.Join(w.dir, configFileExt))
	assert.FileExists(t, filepath.Join(w.dir, types.DatabaseFileName))

	out := w.ok("init")
	assert.NotContains(t, out, "Wrote", "config.yaml must not be rewritten")
	assert.Contains(t, out, "Database ready")
}

func TestCreateAndShow(t *testing.T) {
	w := newWorkspace(t)
	id := w.create("Fix login", "-d", "users cannot log in", "-p", "high", "-l", "bug", "-l", "auth")
	assert.Equal(t, int64(1), id)

	var d struct {
		types.Issue
		Labels []string `json:"labels"`
	}
	w.okJSON(&d, "show", "1")
	assert.Equal(t, "Fix login", d.Title)
	assert.Equal(t, types.PriorityHigh, d.Priority)
	require.NotNil(t, d.Description)
	assert.Equal(t, "users cannot log in", *d.Description)
	assert.Equal(t, []string{"auth", "bug"}, d.Labels)

	out := w.ok("show", "#1")
	assert.Contains(t, out, "Fix login")
	assert.Contains(t, out, "auth, bug")
}

func TestDefaultPriorityFromConfig(t *testing.T) {
	w := newWorkspace(t)
	cfg := "backend: sqlite\ndefault_priority: critical\n"
	require.NoError(t, os.WriteFile(filepath.Join(w.dir, configFileExt), []byte(cfg), 0o644))

	var issue types.Issue
	w.okJSON(&issue, "create", "urgent")
	assert.Equal(t, types.PriorityCritical, issue.Priority)
}

func TestUserErrors(t *testing.T) {
	w := newWorkspace(t)
	w.create("one")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad priority", []string{"create", "x", "-p", "urgent"}, "invalid priority"},
		{"missing issue", []string{"show", "99"}, "not found"},
		{"bad id", []string{"show", "abc"}, "invalid id"},
		{"self block", []string{"block", "1", "1"}, "cannot block itself"},
		{"empty update", []string{"update", "1"}, "nothing to update"},
		{"bad status", []string{"list", "-s", "pending"}, "invalid status"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"no session", []string{"session", "end"}, "no active session"},
		{"stop without timer", []string{"stop"}, "no timer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := w.exec(tt.args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestDependenciesAndReady(t *testing.T) {
	w := newWorkspace(t)
	a := w.create("A")
	b := w.create("B")
	c := w.create("C")

	w.ok("block", fmt.Sprint(b), fmt.Sprint(a))
	w.ok("block", fmt.Sprint(c), fmt.Sprint(b))

	_, errOut, code := w.exec("block", fmt.Sprint(a), fmt.Sprint(c))
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "cycle")

	var ready []types.Issue
	w.okJSON(&ready, "ready")
	require.Len(t, ready, 1)
	assert.Equal(t, a, ready[0].ID)

	var blocked []types.Issue
	w.okJSON(&blocked, "blocked")
	assert.Len(t, blocked, 2)

	w.ok("close", fmt.Sprint(a))
	w.okJSON(&ready, "ready")
	require.Len(t, ready, 1)
	assert.Equal(t, b, ready[0].ID)

	w.ok("unblock", fmt.Sprint(c), fmt.Sprint(b))
	w.okJSON(&ready, "ready")
	assert.Len(t, ready, 2)
}

func TestCloseReopenList(t *testing.T) {
	w := newWorkspace(t)
	w.create("one")
	w.create("two")
	w.ok("close", "1", "2")

	var open, closed []types.Issue
	w.okJSON(&open, "list")
	w.okJSON(&closed, "list", "-s", "closed")
	assert.Empty(t, open)
	assert.Len(t, closed, 2)

	w.ok("reopen", "2")
	w.okJSON(&open, "list")
	require.Len(t, open, 1)
	assert.Equal(t, int64(2), open[0].ID)
}

func TestSubissueAndTree(t *testing.T) {
	w := newWorkspace(t)
	parent := w.create("epic")
	var sub types.Issue
	w.okJSON(&sub, "subissue", fmt.Sprint(parent), "part one")
	require.NotNil(t, sub.ParentID)
	assert.Equal(t, parent, *sub.ParentID)

	out := w.ok("tree")
	assert.Contains(t, out, "#1 epic")
	assert.Contains(t, out, "  [ ] #2 part one")

	_, _, code := w.exec("subissue", "42", "orphan")
	assert.Equal(t, exitUserError, code)
}

func TestDeleteCascades(t *testing.T) {
	w := newWorkspace(t)
	parent := w.create("parent")
	w.ok("subissue", fmt.Sprint(parent), "child")
	w.ok("delete", fmt.Sprint(parent))

	var all []types.Issue
	w.okJSON(&all, "list", "-s", "all")
	assert.Empty(t, all)

	_, _, code := w.exec("delete", fmt.Sprint(parent))
	assert.Equal(t, exitUserError, code)
}

func TestSearch(t *testing.T) {
	w := newWorkspace(t)
	w.create("100% done")
	w.create("100 items")
	w.ok("comment", "2", "mentions foobar")

	var hits []types.Issue
	w.okJSON(&hits, "search", "%")
	require.Len(t, hits, 1)
	assert.Equal(t, "100% done", hits[0].Title)

	w.okJSON(&hits, "search", "FOOBAR")
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)
}

func TestArchive(t *testing.T) {
	w := newWorkspace(t)
	w.create("done")
	w.create("open")

	_, errOut, code := w.exec("archive", "add", "1")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "not closed")

	w.ok("close", "1")
	w.ok("archive", "add", "1")

	var archived []types.Issue
	w.okJSON(&archived, "archive", "list")
	require.Len(t, archived, 1)

	w.ok("archive", "remove", "1")
	w.okJSON(&archived, "archive", "list")
	assert.Empty(t, archived)

	var res map[string]int64
	w.okJSON(&res, "archive", "older", "--before", "tomorrow")
	assert.Equal(t, int64(1), res["archived"])
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)

	got, err := parseCutoff("2026-01-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.Local), got)

	got, err = parseCutoff("2 weeks ago", now)
	require.NoError(t, err)
	assert.True(t, got.Before(now))
	assert.WithinDuration(t, now.AddDate(0, 0, -14), got, 24*time.Hour)

	_, err = parseCutoff("zzz", now)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestSessionFlow(t *testing.T) {
	w := newWorkspace(t)
	id := w.create("task")

	out := w.ok("session", "start")
	assert.Contains(t, out, "Session #1 started.")
	out = w.ok("session", "start")
	assert.Contains(t, out, "already active")

	w.ok("session", "work", fmt.Sprint(id))
	w.ok("session", "action", "wrote the parser")

	var st sessionStatus
	w.okJSON(&st, "session", "status")
	require.NotNil(t, st.Session)
	require.NotNil(t, st.ActiveIssue)
	assert.Equal(t, id, st.ActiveIssue.ID)
	require.NotNil(t, st.Session.LastAction)
	assert.Equal(t, "wrote the parser", *st.Session.LastAction)

	var d struct {
		Comments []types.Comment `json:"comments"`
	}
	w.okJSON(&d, "show", fmt.Sprint(id))
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "[action] wrote the parser", d.Comments[0].Content)

	w.ok("session", "end", "-n", "pick up at tests")
	out = w.ok("session", "handoff")
	assert.Equal(t, "pick up at tests\n", out)

	out = w.ok("session", "start")
	assert.Contains(t, out, "pick up at tests")
}

func TestTimer(t *testing.T) {
	w := newWorkspace(t)
	w.create("one")
	w.create("two")

	out := w.ok("timer")
	assert.Contains(t, out, "No timer running")

	w.ok("start", "1")
	_, errOut, code := w.exec("start", "2")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "already running on #1")

	var st timerStatus
	w.okJSON(&st, "timer")
	require.NotNil(t, st.Entry)
	assert.Equal(t, int64(1), st.Entry.IssueID)

	w.ok("stop")
	w.okJSON(&st, "timer")
	assert.Nil(t, st.Entry)
}

func TestMilestones(t *testing.T) {
	w := newWorkspace(t)
	w.create("one")
	w.create("two")

	var m types.Milestone
	w.okJSON(&m, "milestone", "create", "v1", "-d", "first release")
	w.ok("milestone", "add", fmt.Sprint(m.ID), "1", "2")
	w.ok("close", "1")

	out := w.ok("milestone", "list")
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "1/2 done")

	var d milestoneDetail
	w.okJSON(&d, "milestone", "show", fmt.Sprint(m.ID))
	assert.Len(t, d.Issues, 2)

	w.ok("milestone", "remove", fmt.Sprint(m.ID), "2")
	w.ok("milestone", "close", fmt.Sprint(m.ID))

	var open []types.Milestone
	w.okJSON(&open, "milestone", "list")
	assert.Empty(t, open)

	w.ok("ms", "delete", fmt.Sprint(m.ID))
	_, _, code := w.exec("milestone", "show", fmt.Sprint(m.ID))
	assert.Equal(t, exitUserError, code)
}

func TestNext(t *testing.T) {
	w := newWorkspace(t)
	out := w.ok("next")
	assert.Contains(t, out, "Nothing is ready")

	w.create("low", "-p", "low")
	w.create("critical", "-p", "critical")

	var rec types.Recommendation
	w.okJSON(&rec, "next")
	require.NotNil(t, rec.Issue)
	assert.Equal(t, "critical", rec.Issue.Title)
	require.Len(t, rec.Alternatives, 1)
}

func TestExportImport(t *testing.T) {
	for _, name := range []string{"issues.json", "issues.jsonl"} {
		t.Run(name, func(t *testing.T) {
			src := newWorkspace(t)
			src.create("parent", "-l", "x")
			src.ok("subissue", "1", "child")
			src.ok("comment", "1", "hello")

			path := filepath.Join(t.TempDir(), name)
			out := src.ok("export", path)
			assert.Contains(t, out, "Exported 2 issue(s)")

			dst := newWorkspace(t)
			dst.create("already here")
			var idMap map[string]int64
			dst.okJSON(&idMap, "import", path)
			assert.Equal(t, map[string]int64{"1": 2, "2": 3}, idMap)

			var child types.Issue
			dst.okJSON(&child, "show", "3")
			require.NotNil(t, child.ParentID)
			assert.Equal(t, int64(2), *child.ParentID)
		})
	}
}

func TestExportStdoutJSONL(t *testing.T) {
	w := newWorkspace(t)
	w.create("one")
	out := w.ok("export", "-f", "jsonl")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"version":1`)
	assert.Contains(t, lines[1], `"title":"one"`)
}

func TestImportErrors(t *testing.T) {
	w := newWorkspace(t)
	bad := filepath.Join(t.TempDir(), "future.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": 99, "issues": []}`), 0o644))
	_, errOut, code := w.exec("import", bad)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "unsupported export version")

	_, _, code = w.exec("import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, exitUserError, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{userErrorf("bad"), exitUserError},
		{systemError(errors.New("disk")), exitSysError},
		{fmt.Errorf("x: %w", types.ErrNotFound), exitUserError},
		{fmt.Errorf("x: %w", types.ErrCycle), exitUserError},
		{types.ErrUnsupportedExport, exitUserError},
		{errors.New("accepts 1 arg(s), received 0"), exitUserError},
		{errors.New("database disk image is malformed"), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "0s",
		1500 * time.Millisecond: "2s",
		61 * time.Second:        "1m01s",
		time.Hour + 2*time.Minute + 3*time.Second: "1h02m03s",
	}
	for d, want := range tests {
		assert.Equal(t, want, formatDuration(d))
	}
}
