package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/chainlink/internal/logging"
)

// SchemaVersion is the schema version this package writes. It is stored in
// PRAGMA user_version, so it survives on a file with no tables.
const SchemaVersion = 8

// Schema DDL. Every statement is guarded by IF NOT EXISTS so the whole set
// can be re-applied on any older file.
const (
	createIssues = `CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'open',
    priority TEXT NOT NULL DEFAULT 'medium',
    parent_id INTEGER,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    closed_at TEXT,
    FOREIGN KEY (parent_id) REFERENCES issues(id) ON DELETE CASCADE
);`

	createLabels = `CREATE TABLE IF NOT EXISTS labels (
    issue_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (issue_id, label),
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);`

	createDependencies = `CREATE TABLE IF NOT EXISTS dependencies (
    blocker_id INTEGER NOT NULL,
    blocked_id INTEGER NOT NULL,
    PRIMARY KEY (blocker_id, blocked_id),
    FOREIGN KEY (blocker_id) REFERENCES issues(id) ON DELETE CASCADE,
    FOREIGN KEY (blocked_id) REFERENCES issues(id) ON DELETE CASCADE
);`

	createComments = `CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);`

	createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    active_issue_id INTEGER,
    handoff_notes TEXT,
    last_action TEXT,
    FOREIGN KEY (active_issue_id) REFERENCES issues(id) ON DELETE SET NULL
);`

	createTimeEntries = `CREATE TABLE IF NOT EXISTS time_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    duration_seconds INTEGER,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);`

	createRelations = `CREATE TABLE IF NOT EXISTS relations (
    issue_id_1 INTEGER NOT NULL,
    issue_id_2 INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (issue_id_1, issue_id_2),
    FOREIGN KEY (issue_id_1) REFERENCES issues(id) ON DELETE CASCADE,
    FOREIGN KEY (issue_id_2) REFERENCES issues(id) ON DELETE CASCADE
);`

	createMilestones = `CREATE TABLE IF NOT EXISTS milestones (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'open',
    created_at TEXT NOT NULL,
    closed_at TEXT
);`

	createMilestoneIssues = `CREATE TABLE IF NOT EXISTS milestone_issues (
    milestone_id INTEGER NOT NULL,
    issue_id INTEGER NOT NULL,
    PRIMARY KEY (milestone_id, issue_id),
    FOREIGN KEY (milestone_id) REFERENCES milestones(id) ON DELETE CASCADE,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);`
)

// Index DDL for common lookups.
const (
	idxIssuesStatus        = `CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);`
	idxIssuesPriority      = `CREATE INDEX IF NOT EXISTS idx_issues_priority ON issues(priority);`
	idxIssuesParent        = `CREATE INDEX IF NOT EXISTS idx_issues_parent ON issues(parent_id);`
	idxLabelsIssue         = `CREATE INDEX IF NOT EXISTS idx_labels_issue ON labels(issue_id);`
	idxCommentsIssue       = `CREATE INDEX IF NOT EXISTS idx_comments_issue ON comments(issue_id);`
	idxDepsBlocker         = `CREATE INDEX IF NOT EXISTS idx_deps_blocker ON dependencies(blocker_id);`
	idxDepsBlocked         = `CREATE INDEX IF NOT EXISTS idx_deps_blocked ON dependencies(blocked_id);`
	idxTimeEntriesIssue    = `CREATE INDEX IF NOT EXISTS idx_time_entries_issue ON time_entries(issue_id);`
	idxRelations1          = `CREATE INDEX IF NOT EXISTS idx_relations_1 ON relations(issue_id_1);`
	idxRelations2          = `CREATE INDEX IF NOT EXISTS idx_relations_2 ON relations(issue_id_2);`
	idxMilestoneIssuesM    = `CREATE INDEX IF NOT EXISTS idx_milestone_issues_m ON milestone_issues(milestone_id);`
	idxMilestoneIssuesI    = `CREATE INDEX IF NOT EXISTS idx_milestone_issues_i ON milestone_issues(issue_id);`
	idxSessionsActiveIssue = `CREATE INDEX IF NOT EXISTS idx_sessions_active_issue ON sessions(active_issue_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createIssues,
	createLabels,
	createDependencies,
	createComments,
	createSessions,
	createTimeEntries,
	createRelations,
	createMilestones,
	createMilestoneIssues,
}

// indexDDL lists all CREATE INDEX statements. Indexes are created after
// migrations because some of them cover migrated columns.
var indexDDL = []string{
	idxIssuesStatus,
	idxIssuesPriority,
	idxIssuesParent,
	idxLabelsIssue,
	idxCommentsIssue,
	idxDepsBlocker,
	idxDepsBlocked,
	idxTimeEntriesIssue,
	idxRelations1,
	idxRelations2,
	idxMilestoneIssuesM,
	idxMilestoneIssuesI,
	idxSessionsActiveIssue,
}

// migration upgrades a file whose stored version is below before.
type migration struct {
	before int
	name   string
	apply  func(tx *Store) error
}

// migrations run in order after the additive DDL. Each one must be safe on
// a file where the change is already present.
var migrations = []migration{
	{before: 2, name: "add issues.parent_id", apply: addColumnIfMissing("issues", "parent_id",
		"INTEGER REFERENCES issues(id) ON DELETE CASCADE")},
	{before: 7, name: "sessions.active_issue_id on delete set null", apply: rebuildSessions},
	{before: 8, name: "add sessions.last_action", apply: addColumnIfMissing("sessions", "last_action", "TEXT")},
}

// SchemaVersion reads the version counter stored in the file.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.queryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// initSchema brings the file up to SchemaVersion. Up-to-date files are left
// untouched; older files get the additive DDL, any pending migrations, and
// the new version counter in one transaction.
func (s *Store) initSchema() error {
	version, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= SchemaVersion {
		return nil
	}

	return s.inTransaction(func(tx *Store) error {
		for _, ddl := range schemaDDL {
			if _, err := tx.exec(ddl); err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
		for _, m := range migrations {
			if version >= m.before {
				continue
			}
			if err := m.apply(tx); err != nil {
				return fmt.Errorf("migration %q: %w", m.name, err)
			}
		}
		for _, ddl := range indexDDL {
			if _, err := tx.exec(ddl); err != nil {
				return fmt.Errorf("creating index: %w", err)
			}
		}
		if _, err := tx.exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("writing schema version: %w", err)
		}
		logging.Logger.Info("schema upgraded", "path", s.path, "from", version, "to", SchemaVersion)
		return nil
	})
}

// hasColumn reports whether table has a column named column.
func (s *Store) hasColumn(table, column string) (bool, error) {
	return s.exists("SELECT 1 FROM pragma_table_info(?) WHERE name = ?", table, column)
}

// addColumnIfMissing returns a migration step that adds a column unless it
// already exists.
func addColumnIfMissing(table, column, decl string) func(tx *Store) error {
	return func(tx *Store) error {
		ok, err := tx.hasColumn(table, column)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		_, err = tx.exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
		return err
	}
}

// rebuildSessions recreates the sessions table so deleting an issue clears
// active_issue_id instead of failing. SQLite cannot alter a foreign key
// action in place.
func rebuildSessions(tx *Store) error {
	hasAction, err := tx.hasColumn("sessions", "last_action")
	if err != nil {
		return err
	}
	copyCols := "id, started_at, ended_at, active_issue_id, handoff_notes"
	if hasAction {
		copyCols += ", last_action"
	}

	stmts := []string{
		`CREATE TABLE sessions_new (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    active_issue_id INTEGER,
    handoff_notes TEXT,
    last_action TEXT,
    FOREIGN KEY (active_issue_id) REFERENCES issues(id) ON DELETE SET NULL
);`,
		fmt.Sprintf("INSERT INTO sessions_new (%[1]s) SELECT %[1]s FROM sessions", copyCols),
		"DROP TABLE sessions",
		"ALTER TABLE sessions_new RENAME TO sessions",
	}
	for _, stmt := range stmts {
		if _, err := tx.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
