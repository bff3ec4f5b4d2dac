// Package sqlite provides the public entry points for the SQLite issue
// store while keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/chainlink/internal/sqlite"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// Open opens (creating if needed) the database file at path and upgrades
// its schema.
//
// Example:
//
//	store, err := sqlite.Open(".chainlink/issues.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (types.Handle, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// OpenConfig opens the database inside cfg.DataDir, creating the directory
// if needed.
func OpenConfig(cfg types.Config) (types.Handle, error) {
	store, err := sqlite.OpenConfig(cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}
