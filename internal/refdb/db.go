package refdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB is a per-repository singleton connection handle, opened at repo-open
// and closed at repo-close, never process-wide state.
type DB struct {
	conn *sql.DB
}

// Querier is satisfied by both *sql.DB and *sql.Tx, letting every
// accessor below run either standalone or inside the with_reflog
// transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS reference (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	name TEXT,
	commit_hash TEXT,
	remote TEXT
);

CREATE TABLE IF NOT EXISTS reflog (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ref_name TEXT NOT NULL,
	old_oid TEXT NOT NULL,
	new_oid TEXT NOT NULL,
	committer_name TEXT NOT NULL,
	committer_email TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	action TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	configuration TEXT NOT NULL,
	name TEXT,
	key TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reference_lookup ON reference(kind, name, remote);
CREATE INDEX IF NOT EXISTS idx_reflog_ref_name ON reflog(ref_name, timestamp, id);
CREATE INDEX IF NOT EXISTS idx_config_lookup ON config(configuration, name, key);
`

// Open opens (creating if absent) the libra.db reference database at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open refdb %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // sqlite: one writer, avoids SQLITE_BUSY under our own load
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate refdb schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Begin starts a transaction, the boundary with_reflog (txn.go) drives.
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

var _ Querier = (*DB)(nil)
