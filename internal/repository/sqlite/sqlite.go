// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the binary as a single file.
// No separate database server to install or manage, and ":memory:" gives every
// test its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code.
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite serialises writers anyway,
// PRAGMA foreign_keys is per-connection, and ":memory:" databases are
// per-connection too. The consequence for this package: code running inside
// withTx must only use the *sql.Tx it was given, never db.conn, or it will
// wait forever for the connection the transaction is holding.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/listen-api/internal/apperror"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// querier is the subset of *sql.DB and *sql.Tx the helpers below need, so the
// same lookup code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/listen.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The ON DELETE SET NULL rules in
	// the schema do nothing without this.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes every step safe to
// re-run on an existing database.
//
// FOREIGN KEY POLICY:
// A musician's profile belongs to its account (CASCADE). Everything else that
// points at a musician, excerpt, recording or category uses SET NULL: deleting
// the parent leaves the dependent row in place with a NULL reference.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS musicians (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL UNIQUE REFERENCES accounts(id) ON DELETE CASCADE,
			bio        TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating identity tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS connections (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			practicer_id INTEGER REFERENCES musicians(id) ON DELETE SET NULL,
			follower_id  INTEGER REFERENCES musicians(id) ON DELETE SET NULL,
			created_on   TEXT NOT NULL,
			ended_on     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_connections_pair ON connections(practicer_id, follower_id);
	`)
	if err != nil {
		return fmt.Errorf("creating connections table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS excerpts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			done        INTEGER NOT NULL DEFAULT 0,
			musician_id INTEGER REFERENCES musicians(id) ON DELETE SET NULL
		);
		CREATE INDEX IF NOT EXISTS idx_excerpts_musician_id ON excerpts(musician_id);

		CREATE TABLE IF NOT EXISTS recordings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			audio      TEXT NOT NULL,
			excerpt_id INTEGER REFERENCES excerpts(id) ON DELETE SET NULL,
			date       TEXT NOT NULL,
			label      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recordings_excerpt_id ON recordings(excerpt_id);

		CREATE TABLE IF NOT EXISTS categories (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS goals (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id INTEGER REFERENCES recordings(id) ON DELETE SET NULL,
			category_id  INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			goal         TEXT NOT NULL,
			action       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_goals_recording_id ON goals(recording_id);

		CREATE TABLE IF NOT EXISTS comments (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id    INTEGER REFERENCES musicians(id) ON DELETE SET NULL,
			recording_id INTEGER REFERENCES recordings(id) ON DELETE SET NULL,
			date         TEXT NOT NULL,
			content      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_recording_id ON comments(recording_id);
	`)
	if err != nil {
		return fmt.Errorf("creating practice tables: %w", err)
	}

	// GitHub sign-in came later: add the column to existing databases, then
	// enforce one account per GitHub user. A UNIQUE index still allows many NULLs.
	if err := db.addColumnIfNotExists("accounts", "github_id", "INTEGER"); err != nil {
		return fmt.Errorf("adding github_id to accounts: %w", err)
	}
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_github_id ON accounts(github_id);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts github_id index: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// withTx runs fn inside a transaction, committing if fn returns nil and rolling
// back otherwise. Every multi-step write goes through here so a failure halfway
// never leaves a partially built row behind.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// requireRow returns apperror.NotFound(resource, id) unless table has a row
// with that id. table is always a constant from this package, never user input.
func requireRow(ctx context.Context, q querier, table, resource string, id int64) error {
	var one int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table), id,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound(resource, id)
		}
		return fmt.Errorf("sqlite: looking up %s %d: %w", resource, id, err)
	}
	return nil
}

// requireRef is requireRow for an optional foreign key: nil is always fine.
func requireRef(ctx context.Context, q querier, table, resource string, id *int64) error {
	if id == nil {
		return nil
	}
	return requireRow(ctx, q, table, resource, *id)
}

// checkAffected turns "0 rows affected" into apperror.NotFound. Update and
// Delete use it instead of a SELECT-then-write pair.
func checkAffected(result sql.Result, resource string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// uniqueViolationOn reports whether err is a UNIQUE failure on table.column.
func uniqueViolationOn(err error, column string) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), column)
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
