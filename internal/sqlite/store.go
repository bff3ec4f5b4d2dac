// Package sqlite implements the chainlink issue store on an embedded SQLite
// file. A Store owns one *sql.DB limited to a single connection, so every
// statement is serialized through one SQLite session.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// Compile-time interface check.
var _ types.Handle = (*Store)(nil)

// busyTimeoutMillis is how long SQLite itself waits on a locked file before
// reporting SQLITE_BUSY.
const busyTimeoutMillis = 5000

// querier is the statement surface shared by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// errRow is a rowScanner that always fails; returned when the store is
// closed so single-row reads report ErrStoreClosed.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// Store is the SQLite-backed Tracker. The zero value is not usable; call
// Open or OpenConfig.
//
// A Store returned by Open runs each statement on its own. The Store handed
// to a RunInTransaction callback is bound to that transaction.
type Store struct {
	db     *sql.DB
	q      querier
	inTx   bool
	path   string
	closed *atomic.Bool
}

// Open opens (creating if needed) the SQLite file at path and brings its
// schema up to date. Opening the same file repeatedly is safe. A file that
// is not a SQLite database fails with a descriptive error; a zero-length
// file is treated as a fresh store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		q:      db,
		path:   path,
		closed: new(atomic.Bool),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema for %s: %w", path, err)
	}

	logging.Logger.Debug("store opened", "path", path)
	return s, nil
}

// OpenConfig validates cfg, creates DataDir if it does not exist, and opens
// the database file inside it.
func OpenConfig(cfg types.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return Open(path)
}

// dsn builds the modernc.org/sqlite connection string. Foreign keys are
// enabled on every connection the pool opens, and BEGIN takes the write
// lock immediately.
func dsn(path string) string {
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_txlock=immediate",
		path, busyTimeoutMillis)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Close is idempotent; operations after
// Close return ErrStoreClosed. Closing a transaction-bound Store is a no-op.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	logging.Logger.Debug("store closed", "path", s.path)
	return s.db.Close()
}

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	return s.q.Exec(query, args...)
}

func (s *Store) query(query string, args ...any) (*sql.Rows, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	return s.q.Query(query, args...)
}

func (s *Store) queryRow(query string, args ...any) rowScanner {
	if s.closed.Load() {
		return errRow{types.ErrStoreClosed}
	}
	return s.q.QueryRow(query, args...)
}

// execChanged runs a mutation and reports whether any row was affected.
func (s *Store) execChanged(query string, args ...any) (bool, error) {
	res, err := s.exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// execInsert runs an INSERT and returns the new row ID.
func (s *Store) execInsert(query string, args ...any) (int64, error) {
	res, err := s.exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// queryIDs runs a single-column integer query.
func (s *Store) queryIDs(query string, args ...any) ([]int64, error) {
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// exists reports whether query returns at least one row.
func (s *Store) exists(query string, args ...any) (bool, error) {
	var one int
	err := s.queryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
