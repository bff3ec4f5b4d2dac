package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

const beginMaxElapsed = 10 * time.Second

func newBeginBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = beginMaxElapsed
	return bo
}

// isBusyError reports whether err is SQLite refusing a lock another
// connection holds.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return strings.Contains(strings.ToLower(err.Error()), "database is locked")
}

// begin starts a write transaction, retrying while the file is busy.
func (s *Store) begin() (*sql.Tx, error) {
	var tx *sql.Tx
	err := backoff.Retry(func() error {
		var err error
		tx, err = s.db.Begin()
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			logging.Logger.Debug("begin busy, retrying", "path", s.path, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, newBeginBackoff())
	return tx, err
}

// inTransaction runs fn with a Store bound to one transaction. On a Store
// that is already transaction-bound, fn runs inline in the same
// transaction. An error from fn is returned unchanged after rollback; a
// panic rolls back and is re-raised.
func (s *Store) inTransaction(fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	sqlTx, err := s.begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &Store{
		db:     s.db,
		q:      sqlTx,
		inTx:   true,
		path:   s.path,
		closed: s.closed,
	}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction runs fn atomically against a transaction-bound Tracker.
// Any error from fn rolls back every change fn made and is returned as is.
// A panic in fn also rolls back before propagating.
func (s *Store) RunInTransaction(fn func(tx types.Tracker) error) error {
	return s.inTransaction(func(tx *Store) error {
		return fn(tx)
	})
}

// CreateIssues creates a batch of issues in one transaction and returns
// their IDs in input order. An element's ParentIndex must point at an earlier
// element; otherwise the whole batch is rolled back.
func (s *Store) CreateIssues(batch []types.NewIssue) ([]int64, error) {
	ids := make([]int64, 0, len(batch))
	err := s.inTransaction(func(tx *Store) error {
		for i, n := range batch {
			parentID := n.ParentID
			if n.ParentIndex != nil {
				idx := *n.ParentIndex
				if idx < 0 || idx >= i {
					return fmt.Errorf("issue %d in batch: %w", i, types.ErrInvalidParentIndex)
				}
				parent := ids[idx]
				parentID = &parent
			}

			id, err := tx.insertIssue(n.Title, n.Description, n.Priority, parentID)
			if err != nil {
				return fmt.Errorf("creating issue %d in batch: %w", i, err)
			}
			for _, label := range n.Labels {
				if _, err := tx.AddLabel(id, label); err != nil {
					return err
				}
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
