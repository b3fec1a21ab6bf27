// Package db is the domain layer: it owns every list, task, tag,
// attribute and template operation and enforces their invariants on top
// of a SQLite store. Adapters (the TUI, tests) only ever call methods on
// DB; hierarchy, soft-delete and typed-attribute rules all live here.
package db

import (
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Maximum parent-chain length tolerated before a walk is declared broken.
// The acyclicity checks keep real data far below this.
const maxHierarchyDepth = 100

// Default pagination window for task listings.
const defaultPageSize = 50

// DB wraps the database connection.
type DB struct {
	*sql.DB
}

// New opens (creating if needed) the database at path and initializes the
// schema. Pass ":memory:" for an ephemeral store.
func New(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, storef("create data dir: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, storef("open %s: %v", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storef("init schema: %v", err)
	}

	return &DB{db}, nil
}

// DefaultPath returns the database location under the XDG data directory,
// falling back to ~/.local/share.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "tasktree", "tasktree.db"), nil
}

// withTx runs fn inside a transaction. Any error rolls the whole
// transaction back so partial multi-row changes are never observable.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return storef("begin tx: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storef("commit tx: %v", err)
	}
	return nil
}

// GetSetting retrieves a setting value by key.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storef("get setting %s: %v", key, err)
	}
	return value, nil
}

// SetSetting sets a setting value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return storef("set setting %s: %v", key, err)
	}
	return nil
}
