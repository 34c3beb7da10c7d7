// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite — a pure-Go translation of SQLite, so
// there is no CGo and no separate database server. Tests open a database
// in a temp directory; ":memory:" does not mix with the sql.DB pool (each
// pooled connection would see its own empty database).
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB connection pool and exposes the two stores built
// on it. Users implements repository.UserRepository, History implements
// repository.HistoryRepository; both share the pool.
type DB struct {
	conn    *sql.DB
	Users   *UserStore
	History *HistoryStore
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — this is a web
	// server, concurrent requests hit the same file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. We need them on so that
	// deleting an account cascades to its history entries.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn:    conn,
		Users:   &UserStore{conn: conn},
		History: &HistoryStore{conn: conn},
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Call it on shutdown to flush the WAL
// and release the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent across restarts.
func (db *DB) migrate() error {
	// Email uniqueness is case-insensitive at the store level: the service
	// lowercases on the way in, and COLLATE NOCASE catches anything that
	// slips past.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 0,
			window_start  DATETIME NOT NULL,
			daily_limit   INTEGER NOT NULL DEFAULT 100,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			input_text TEXT NOT NULL,
			result     TEXT NOT NULL,
			url        TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_user_created
			ON history(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_history_user_type_created
			ON history(user_id, type, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}

	return nil
}
